package transport

import (
	"context"
	"testing"

	"github.com/rhuss/chatbridge/pkg/api"
)

func TestChatHandlerFunc(t *testing.T) {
	var got string
	fn := ChatHandlerFunc(func(ctx context.Context, req *api.ChatRequest, w ResponseWriter) error {
		got = req.Model
		return nil
	})
	if err := fn.CreateChat(context.Background(), &api.ChatRequest{Model: "m1"}, nil); err != nil {
		t.Fatal(err)
	}
	if got != "m1" {
		t.Errorf("model = %q", got)
	}
}

func TestListOptionsNormalize(t *testing.T) {
	tests := []struct {
		in   ListOptions
		want ListOptions
	}{
		{ListOptions{}, ListOptions{Limit: 20, Order: "desc"}},
		{ListOptions{Limit: 500, Order: "asc"}, ListOptions{Limit: 100, Order: "asc"}},
		{ListOptions{Limit: 5, Order: "sideways", Model: "m"}, ListOptions{Limit: 5, Order: "desc", Model: "m"}},
	}
	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.want {
			t.Errorf("Normalize(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

var (
	_ ChatHandler = ChatHandlerFunc(nil)
	_ ResultStore = (*nopStore)(nil)
)

type nopStore struct{}

func (nopStore) SaveResult(context.Context, *api.ChatResponse) error           { return nil }
func (nopStore) GetResult(context.Context, string) (*api.ChatResponse, error)  { return nil, nil }
func (nopStore) DeleteResult(context.Context, string) error                    { return nil }
func (nopStore) ListResults(context.Context, ListOptions) (*ResultList, error) { return nil, nil }
func (nopStore) HealthCheck(context.Context) error                             { return nil }
func (nopStore) Close() error                                                  { return nil }
