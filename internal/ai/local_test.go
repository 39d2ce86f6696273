package ai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitleaseteam/splitlease-monorepo-sub000/internal/logging"
)

func slogDiscard() *slog.Logger { return logging.Discard() }

func TestLocalEncoder_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		vec := make([]string, 768)
		for i := range vec {
			vec[i] = "0.5"
		}
		fmt.Fprintf(w, `{"object":"list","data":[{"object":"embedding","embedding":[%s],"index":0}],"model":"nomic-embed-text","usage":{"prompt_tokens":2,"total_tokens":2}}`, strings.Join(vec, ","))
	}))
	defer srv.Close()

	enc, err := NewLocalEncoder(srv.URL, "nomic-embed-text", slogDiscard())
	require.NoError(t, err)

	vecs, err := enc.Embed(context.Background(), []string{"sunny loft"})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
	assert.Len(t, vecs[0], TextDims)
	assert.InDelta(t, 1.0, norm(vecs[0]), 1e-5)
	assert.Equal(t, "local:nomic-embed-text@512", enc.Revision())

	empty, err := enc.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
