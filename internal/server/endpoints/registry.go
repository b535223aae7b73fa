package endpoints

import (
	"github.com/booksmd/booksmd/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},

		// Pipeline endpoints
		&UploadEndpoint{},
		&ProcessEndpoint{},
		&StatusEndpoint{},
		&DownloadEndpoint{},
	}
}
