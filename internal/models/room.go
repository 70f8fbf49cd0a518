package models

// Member is the brief member shape embedded in rooms, posts and search
// results.
type Member struct {
	MemberID        int64   `json:"member_id"`
	Username        string  `json:"username"`
	RealName        string  `json:"real_name"`
	ProfileImageURL *string `json:"profile_image_url"`
}

// ChatRoom is one conversation between two or more members.
type ChatRoom struct {
	ChatRoomID int64    `json:"chat_room_id"`
	LastChat   string   `json:"last_chat,omitempty"`
	Members    []Member `json:"members"`
}

// Opponent returns the first participant that is not the viewer. Used to
// derive the display name and avatar for the other party of a 1:1 room.
// The boolean is false when the membership list holds no such member.
func (r ChatRoom) Opponent(viewerID int64) (Member, bool) {
	for _, m := range r.Members {
		if m.MemberID != viewerID {
			return m, true
		}
	}
	return Member{}, false
}

// RoomPage is one page of the viewer's room list.
type RoomPage struct {
	Content []ChatRoom `json:"content"`
	Last    bool       `json:"last"`
}
