package config

import "time"

const (
	// Matchmaking
	PollInterval = 1500 * time.Millisecond

	// Messages
	MaxMessageLength = 1000

	// Realtime connection
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxFrameSize   = 4096
	SendBufferSize = 256

	// Devserver sessions
	SessionTokenTTL = 72 * time.Hour
)
