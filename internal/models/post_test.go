package models

import "testing"

func TestAggregateStatus(t *testing.T) {
	success := PostResult{Platform: "etsy", Status: ResultSuccess}
	failure := PostResult{Platform: "shopify", Status: ResultFailed}

	tests := []struct {
		name    string
		results []PostResult
		want    PostStatus
	}{
		{"all succeed", []PostResult{success, success}, PostStatusPublished},
		{"none succeed", []PostResult{failure, failure}, PostStatusFailed},
		{"mixed", []PostResult{success, failure}, PostStatusPartial},
		{"single success", []PostResult{success}, PostStatusPublished},
		{"empty", nil, PostStatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AggregateStatus(tt.results); got != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPostStatusTerminal(t *testing.T) {
	terminal := []PostStatus{PostStatusPublished, PostStatusPartial, PostStatusFailed}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []PostStatus{PostStatusDraft, PostStatusScheduled, PostStatusPublishing} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestQueueItemCanRetry(t *testing.T) {
	item := &QueueItem{RetryCount: 0, MaxRetries: 3}
	if !item.CanRetry() {
		t.Fatal("fresh item should have retry budget")
	}
	item.RetryCount = 3
	if item.CanRetry() {
		t.Fatal("exhausted item should not retry")
	}
}
