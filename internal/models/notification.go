package models

import "time"

// Notification types delivered by the backend. SubID points at the entity
// the notification is about: a member for follow events, a post for likes
// and comments.
const (
	NotificationFollowRequest  = "FOLLOW_REQUEST"
	NotificationFollowAccepted = "FOLLOW_ACCEPTED"
	NotificationFollowed       = "FOLLOWED"
	NotificationPostLike       = "POST_LIKE"
	NotificationComment        = "COMMENT"
)

type Notification struct {
	NotificationID int64     `json:"notification_id"`
	Type           string    `json:"type"`
	Message        string    `json:"message"`
	SubID          int64     `json:"sub_id"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

type NotificationPage struct {
	Content []Notification `json:"content"`
	Last    bool           `json:"last"`
}

// Follow is the state of one follow edge, fetched separately for
// FOLLOW_REQUEST notifications so the accept/reject actions know which
// edge to act on.
type Follow struct {
	FollowID int64  `json:"follow_id"`
	Status   string `json:"status"`
}
