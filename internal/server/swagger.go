package server

//go:generate swag init -g internal/server/server.go -o internal/server/docs

// @title vulnprobe API
// @version 0.1
// @description Submit heuristic vulnerability scans and fetch their reports.
// @contact.name vulnprobe maintainers
// @BasePath /
