package server

import "github.com/raysh454/vulnprobe/internal/logging"

type Config struct {
	// ListenAddr is the HTTP listen address for the API server.
	ListenAddr string

	// SubmitRate limits scan submissions per second; non-positive disables it.
	SubmitRate  float64
	SubmitBurst int

	Logger logging.Logger
}
