package sapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueURL(t *testing.T) {
	assert.Equal(t, "https://queue.keboola.com",
		QueueURL("https://connection.keboola.com"))
	assert.Equal(t, "https://queue.eu-central-1.keboola.com",
		QueueURL("https://connection.eu-central-1.keboola.com"))
	// Hosts without the storage prefix just gain the service prefix.
	assert.Equal(t, "https://queue.example.com",
		QueueURL("https://example.com"))
}

func TestAIServiceURL(t *testing.T) {
	assert.Equal(t, "https://ai.keboola.com",
		AIServiceURL("https://connection.keboola.com"))
}

func TestSiblingServiceURL_DropsPath(t *testing.T) {
	assert.Equal(t, "https://queue.keboola.com",
		QueueURL("https://connection.keboola.com/v2/storage"))
}

func TestSiblingServiceURL_UnparseableInputPassesThrough(t *testing.T) {
	assert.Equal(t, "not a url", QueueURL("not a url"))
}
