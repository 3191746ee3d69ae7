package batch

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseStringOrArray(t *testing.T) {
	tests := []struct {
		name    string
		param   any
		want    []string
		wantErr bool
	}{
		{name: "single string", param: "m1", want: []string{"m1"}},
		{name: "array", param: []any{"m1", "m2"}, want: []string{"m1", "m2"}},
		{name: "string slice", param: []string{"m1"}, want: []string{"m1"}},
		{name: "duplicates dropped", param: []any{"m1", "m2", "m1"}, want: []string{"m1", "m2"}},
		{name: "nil", param: nil, wantErr: true},
		{name: "empty string", param: "", wantErr: true},
		{name: "empty array", param: []any{}, wantErr: true},
		{name: "non-string item", param: []any{"m1", 2}, wantErr: true},
		{name: "empty item", param: []any{"m1", ""}, wantErr: true},
		{name: "wrong type", param: 42, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStringOrArray(tt.param, "messageIds")
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStringOrArray() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestProcess_OrderAndPartialFailure(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	results := Process(context.Background(), ids, 2, func(_ context.Context, id string) (string, error) {
		if id == "c" {
			return "", errors.New("payload missing")
		}
		return "ok-" + id, nil
	})

	if len(results) != len(ids) {
		t.Fatalf("got %d results, want %d", len(results), len(ids))
	}
	for i, r := range results {
		if r.ID != ids[i] {
			t.Errorf("results[%d].ID = %q, want %q", i, r.ID, ids[i])
		}
	}
	if results[2].Status != StatusError || results[2].Error != "payload missing" {
		t.Errorf("results[2] = %+v", results[2])
	}
	if results[3].Status != StatusSuccess || results[3].Result != "ok-d" {
		t.Errorf("results[3] = %+v", results[3])
	}
}

func TestProcess_BoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	ids := make([]string, 20)
	for i := range ids {
		ids[i] = string(rune('a' + i))
	}

	Process(context.Background(), ids, 3, func(context.Context, string) (string, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return "", nil
	})

	if got := peak.Load(); got > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", got)
	}
}

func TestProcess_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	results := Process(ctx, []string{"a", "b"}, 1, func(context.Context, string) (string, error) {
		calls.Add(1)
		return "", nil
	})
	if calls.Load() != 0 {
		t.Errorf("fn called %d times after cancel", calls.Load())
	}
	for _, r := range results {
		if r.Status != StatusError {
			t.Errorf("result %+v should be an error", r)
		}
	}
}

func TestFormatResults(t *testing.T) {
	out := FormatResults([]Result{
		NewSuccessResult("a", "done"),
		NewErrorResult("b", errors.New("boom")),
	})

	var br BatchResult
	if err := json.Unmarshal([]byte(out), &br); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if br.Total != 2 || br.Successful != 1 || br.Failed != 1 {
		t.Errorf("summary = %+v", br)
	}
}
