package fixgroup

// FixGroup is a standing group of students of a class, reused by fixed-grouping seminars.
type FixGroup struct {
	ID        int64
	ClassID   int64
	LeaderID  int64 // 0: no leader
	MemberIDs []int64
}

func (g FixGroup) HasLeader() bool { return g.LeaderID != 0 }

func (g FixGroup) IsLeader(studentID int64) bool { return g.LeaderID != 0 && g.LeaderID == studentID }

func (g FixGroup) HasMember(studentID int64) bool {
	for _, id := range g.MemberIDs {
		if id == studentID {
			return true
		}
	}
	return false
}
