package models

import "time"

type PostImage struct {
	URL string `json:"url"`
}

type Post struct {
	PostID       int64       `json:"post_id"`
	Title        string      `json:"title"`
	Content      string      `json:"content"`
	Member       Member      `json:"member"`
	Images       []PostImage `json:"images,omitempty"`
	LikeCount    int         `json:"like_count"`
	Liked        bool        `json:"liked"`
	CommentCount int         `json:"comment_count"`
	Comments     []Comment   `json:"comments,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

type Comment struct {
	CommentID int64     `json:"comment_id"`
	Content   string    `json:"content"`
	Member    Member    `json:"member"`
	CreatedAt time.Time `json:"created_at"`
}

type PostPage struct {
	Content []Post `json:"content"`
	Last    bool   `json:"last"`
}

// MemberDetail is the full profile shape returned by the member endpoints.
type MemberDetail struct {
	MemberID        int64   `json:"member_id"`
	Username        string  `json:"username"`
	RealName        string  `json:"real_name"`
	Email           string  `json:"email,omitempty"`
	Introduce       string  `json:"introduce,omitempty"`
	ProfileImageURL *string `json:"profile_image_url"`
	FollowerCount   int     `json:"follower_count"`
	FollowingCount  int     `json:"following_count"`
	PostCount       int     `json:"post_count"`
}

type MemberPage struct {
	Content []Member `json:"content"`
	Last    bool     `json:"last"`
}
