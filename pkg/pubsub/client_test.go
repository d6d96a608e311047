package pubsub

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petfinder-app/petfinder-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	require.Equal(t, "projects/pf/topics/orders", TopicResourceName("pf", "orders"))
	require.Equal(t, "projects/other/topics/x", TopicResourceName("pf", "projects/other/topics/x"))
	require.Empty(t, TopicResourceName("", "orders"))
	require.Empty(t, TopicResourceName("pf", "  "))
}

func TestTopicNamesSkipsBlanks(t *testing.T) {
	names := TopicNames(config.PubSubConfig{OrdersTopic: "orders", CatalogTopic: " ", PetsTopic: "pets"})
	require.Equal(t, []string{"orders", "pets"}, names)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	require.Nil(t, c.Publisher("orders"))
	require.NoError(t, c.Close())
	require.Error(t, c.Ping(t.Context()))
}
