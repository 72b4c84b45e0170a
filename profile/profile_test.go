package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultProfile(t *testing.T) {
	p := Default("com.example.editor")

	if p.BundleID != "com.example.editor" {
		t.Errorf("BundleID: got %q", p.BundleID)
	}
	if p.WebRendering || p.Messenger || p.DisableScrollHide {
		t.Error("default profile must carry no quirk flags")
	}
	if p.ScrollReshowDelay != DefaultScrollReshowDelay {
		t.Errorf("ScrollReshowDelay: got %v, want %v", p.ScrollReshowDelay, DefaultScrollReshowDelay)
	}
	if p.ConversationSwitchDelay != DefaultConversationSwitchDelay {
		t.Errorf("ConversationSwitchDelay: got %v, want %v", p.ConversationSwitchDelay, DefaultConversationSwitchDelay)
	}
}

func TestWebRenderingScrollDelayDefault(t *testing.T) {
	r := NewStaticRegistry(Profile{BundleID: "com.example.webapp", WebRendering: true})

	p := r.Lookup("com.example.webapp")
	if p.ScrollReshowDelay != WebScrollReshowDelay {
		t.Errorf("web host ScrollReshowDelay: got %v, want %v", p.ScrollReshowDelay, WebScrollReshowDelay)
	}
}

func TestStaticRegistryUnknownBundle(t *testing.T) {
	r := NewStaticRegistry(Profile{BundleID: "com.example.known"})

	p := r.Lookup("com.example.unknown")
	if p.BundleID != "com.example.unknown" {
		t.Errorf("unknown lookup BundleID: got %q", p.BundleID)
	}
	if p.ScrollReshowDelay != DefaultScrollReshowDelay {
		t.Errorf("unknown lookup delay: got %v, want default", p.ScrollReshowDelay)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	data := `
profiles:
  - bundle_id: com.example.chat
    messenger: true
    unreliable_notifications: true
    conversation_switch_delay: 1.2s
  - bundle_id: com.example.webmail
    web_rendering: true
    disable_scroll_hide: true
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", r.Len())
	}

	chat := r.Lookup("com.example.chat")
	if !chat.Messenger || !chat.UnreliableNotifications {
		t.Errorf("chat profile flags: got %+v", chat)
	}
	if chat.ConversationSwitchDelay != 1200*time.Millisecond {
		t.Errorf("chat ConversationSwitchDelay: got %v, want 1.2s", chat.ConversationSwitchDelay)
	}

	mail := r.Lookup("com.example.webmail")
	if !mail.WebRendering || !mail.DisableScrollHide {
		t.Errorf("webmail profile flags: got %+v", mail)
	}
	if mail.ScrollReshowDelay != WebScrollReshowDelay {
		t.Errorf("webmail ScrollReshowDelay: got %v, want %v", mail.ScrollReshowDelay, WebScrollReshowDelay)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("LoadFile on missing file: expected error")
	}
}
