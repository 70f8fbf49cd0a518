package config

import "time"

const (
	// Room list pagination; chat history page size is server-side.
	RoomPageSize = 20

	// Scroll anchoring. The view counts as "at bottom" within
	// BottomThreshold of the maximum offset; reaching within TopThreshold
	// of the top edge triggers a backward history fetch.
	BottomThreshold = 10
	TopThreshold    = 10

	// Notifications
	NotificationPageSize = 10

	// Live bridge timings (gorilla/websocket pump settings)
	BridgeWriteWait      = 10 * time.Second
	BridgePongWait       = 60 * time.Second
	BridgePingPeriod     = (BridgePongWait * 9) / 10
	BridgeMaxMessageSize = 64 * 1024
	BridgeSendQueueSize  = 256
)
