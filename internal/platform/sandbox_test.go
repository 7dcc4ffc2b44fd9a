package platform

import (
	"context"
	"strings"
	"testing"
)

func TestSandbox_FormatTruncatesBody(t *testing.T) {
	s := NewSandbox(Pinterest) // 500 char limit

	content := Content{Title: "Mug", Body: strings.Repeat("x", 600)}
	formatted, err := s.Format(context.Background(), content)
	if err != nil {
		t.Fatal(err)
	}
	if len(formatted.Body) != 500 {
		t.Fatalf("body length = %d, want 500", len(formatted.Body))
	}
}

func TestSandbox_PublishReturnsIdentity(t *testing.T) {
	s := NewSandbox(Etsy)

	resp, err := s.Publish(context.Background(), Content{Title: "Mug"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.ExternalID == "" {
		t.Fatal("expected an external id")
	}
	if !strings.Contains(resp.URL, resp.ExternalID) {
		t.Fatalf("url %q does not reference the external id", resp.URL)
	}
}

func TestSandbox_FailTagInjectsFailure(t *testing.T) {
	s := NewSandbox(Etsy)

	_, err := s.Publish(context.Background(), Content{
		Title: "Mug",
		Tags:  []string{"ceramics", "fail:connection timeout"},
	})
	if err == nil {
		t.Fatal("expected injected failure")
	}
	if !strings.Contains(err.Error(), "connection timeout") {
		t.Fatalf("err = %v", err)
	}
}

func TestRegistry_GetAndNames(t *testing.T) {
	r := NewRegistry()
	r.Register(NewSandbox(Shopify))
	r.Register(NewSandbox(Etsy))

	a, err := r.Get(Etsy)
	if err != nil {
		t.Fatal(err)
	}
	if a.Name() != Etsy {
		t.Fatalf("name = %s", a.Name())
	}

	if _, err := r.Get("myspace"); err == nil {
		t.Fatal("expected error for unregistered platform")
	}

	names := r.Names()
	if len(names) != 2 || names[0] != Etsy || names[1] != Shopify {
		t.Fatalf("names = %v", names)
	}
}
