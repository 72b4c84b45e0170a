package replay

import (
	"context"
	"strings"
	"testing"

	"github.com/hazyhaar/axwatch/hostio"
)

const sampleTrace = `{"offset":"0s","kind":"window","bounds":{"x":10,"y":10,"w":800,"h":600}}
{"offset":"50ms","kind":"element","bounds":{"x":20,"y":400,"w":600,"h":40},"text":"Hello"}
{"offset":"200ms","kind":"text","text":"Hello w"}
{"offset":"300ms","kind":"scroll"}
{"offset":"400ms","kind":"replacement"}
{"offset":"500ms","kind":"window-gone"}
`

type recordingSink struct {
	calls []string
}

func (r *recordingSink) HandleTextChange(string) { r.calls = append(r.calls, "text") }
func (r *recordingSink) NotifyScroll()           { r.calls = append(r.calls, "scroll") }
func (r *recordingSink) NoteReplacement()        { r.calls = append(r.calls, "replacement") }

func TestReadTrace(t *testing.T) {
	recs, err := Read(strings.NewReader(sampleTrace))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(recs) != 6 {
		t.Fatalf("got %d records, want 6", len(recs))
	}
	if recs[0].Kind != "window" || recs[0].Bounds == nil || recs[0].Bounds.W != 800 {
		t.Errorf("first record = %+v", recs[0])
	}
	d, err := recs[2].At()
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if d.Milliseconds() != 200 {
		t.Errorf("offset = %v, want 200ms", d)
	}
}

func TestReadRejectsBadOffset(t *testing.T) {
	if _, err := Read(strings.NewReader(`{"offset":"soon","kind":"scroll"}`)); err == nil {
		t.Fatal("expected error for unparseable offset")
	}
}

func TestHostApply(t *testing.T) {
	recs, err := Read(strings.NewReader(sampleTrace))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	h := NewHost()
	sink := &recordingSink{}
	ctx := context.Background()

	if _, err := h.FrontmostWindow(ctx, 1); err == nil {
		t.Fatal("empty host should have no window")
	}

	for _, rec := range recs[:5] {
		h.Apply(rec, sink)
	}

	w, err := h.FrontmostWindow(ctx, 1)
	if err != nil {
		t.Fatalf("FrontmostWindow: %v", err)
	}
	if w.H != 600 {
		t.Errorf("window height = %v, want 600", w.H)
	}
	text, err := h.Text(ctx)
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if text != "Hello w" {
		t.Errorf("text = %q, want %q", text, "Hello w")
	}
	want := []string{"text", "scroll", "replacement"}
	if len(sink.calls) != len(want) {
		t.Fatalf("sink calls = %v, want %v", sink.calls, want)
	}
	for i := range want {
		if sink.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, sink.calls[i], want[i])
		}
	}

	h.Apply(recs[5], sink)
	if _, err := h.FrontmostWindow(ctx, 1); err != hostio.ErrNoWindow {
		t.Fatalf("after window-gone err = %v, want ErrNoWindow", err)
	}
}
