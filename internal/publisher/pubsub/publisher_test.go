package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newTestPublisher(t *testing.T, topics ...string) (*Publisher, *pstest.Server) {
	t.Helper()
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })
	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(ctx, "job-mcp-test", option.WithGRPCConn(conn))
	require.NoError(t, err)
	for _, name := range topics {
		_, err := client.CreateTopic(ctx, name)
		require.NoError(t, err)
	}
	p := New(client)
	t.Cleanup(func() { _ = p.Close() })
	return p, srv
}

func TestPublishSendsJSONWithContentType(t *testing.T) {
	t.Parallel()

	p, srv := newTestPublisher(t, "search-completed")
	id, err := p.Publish(context.Background(), "search-completed", map[string]any{"run_id": "run-1", "total": 3})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, id, msgs[0].ID)
	require.Equal(t, "application/json", msgs[0].Attributes["content_type"])
	var got map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	require.Equal(t, "run-1", got["run_id"])
	require.EqualValues(t, 3, got["total"])

	_, err = p.Publish(context.Background(), "search-completed", map[string]string{"run_id": "run-2"})
	require.NoError(t, err)
	require.Len(t, p.topics, 1, "topic handles are reused")
}

func TestPublishErrors(t *testing.T) {
	t.Parallel()

	p, _ := newTestPublisher(t)
	_, err := p.Publish(context.Background(), "", "x")
	require.ErrorContains(t, err, "topic is required")

	_, err = p.Publish(context.Background(), "missing", "x")
	require.ErrorContains(t, err, "publish message")

	_, err = p.Publish(context.Background(), "missing", make(chan int))
	require.ErrorContains(t, err, "marshal payload")

	var unset *Publisher
	_, err = unset.Publish(context.Background(), "t", "x")
	require.Error(t, err)
	require.NoError(t, unset.Close())
}
