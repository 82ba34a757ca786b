package sapi

import (
	"net/url"
	"strings"
)

const (
	storageHostPrefix = "connection."
	queueHostPrefix   = "queue."
	aiHostPrefix      = "ai."
)

// QueueURL derives the job queue service URL from the storage API URL, e.g.
// https://connection.eu-central-1.keboola.com -> https://queue.eu-central-1.keboola.com.
func QueueURL(storageAPIURL string) string {
	return siblingServiceURL(storageAPIURL, queueHostPrefix)
}

// AIServiceURL derives the AI service URL from the storage API URL.
func AIServiceURL(storageAPIURL string) string {
	return siblingServiceURL(storageAPIURL, aiHostPrefix)
}

func siblingServiceURL(storageAPIURL, prefix string) string {
	u, err := url.Parse(storageAPIURL)
	if err != nil || u.Host == "" {
		return storageAPIURL
	}
	host := strings.TrimPrefix(u.Host, storageHostPrefix)
	u.Host = prefix + host
	u.Path = ""
	return u.String()
}
