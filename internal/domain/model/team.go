package model

import "time"

// Team groups tracked users. LastSync records the last time a team-wide sync
// attempt was made, whether or not every member succeeded.
type Team struct {
	ID          string // Surrogate UUID.
	Name        string // Unique.
	Description string
	CreatedAt   time.Time
	LastSync    *time.Time
}

// TeamMember is the explicit many-to-many join between teams and users.
type TeamMember struct {
	ID         string // Surrogate UUID.
	TeamID     string
	UserID     string // TrackedUser.ID.
	AssignedAt time.Time
	AssignedBy string
}

// TeamMemberDetail pairs a membership row with the resolved user.
type TeamMemberDetail struct {
	Membership TeamMember
	User       TrackedUser
}
