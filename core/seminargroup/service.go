package seminargroup

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/xmu-se/crms/core"
	"github.com/xmu-se/crms/core/course"
	"github.com/xmu-se/crms/core/fixgroup"
	"github.com/xmu-se/crms/core/seminar"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("seminar group not found")
	ErrTopicNotSelected = core.NewNotFoundError("topic not selected by this group")
	ErrAlreadyGrouped   = core.NewConflictError("groups already exist for this seminar")
	ErrTopicSelected    = core.NewConflictError("topic already selected by this group")
	ErrTopicFull        = core.NewConflictError("topic has reached its group limit")
	ErrGroupTooLarge    = core.NewConflictError("group has more members than this topic allows")
	ErrForeignTopic     = core.NewArgumentError("topic does not belong to the seminar of this group")
	ErrNotLeader        = core.NewPermissionError("only the group leader can do this")
	ErrNotMember        = core.NewPermissionError("only members of this group can do this")
	ErrOwnGroup         = core.NewPermissionError("students cannot grade their own group")
	ErrNotClassmate     = core.NewPermissionError("only students of this class can grade this group")
)

type (
	Repository interface {
		CreateSeminarGroup(ctx context.Context, grp SeminarGroup) (SeminarGroup, error)
		GetSeminarGroup(ctx context.Context, id int64) (SeminarGroup, error)
		QuerySeminarGroups(ctx context.Context, filter QueryFilter) ([]SeminarGroup, error)
		// UpdateSeminarGroup saves the leader, report and grades.
		UpdateSeminarGroup(ctx context.Context, grp SeminarGroup) (SeminarGroup, error)

		// CreateGroupTopic returns ErrTopicSelected on duplicates, and ErrTopicFull when groupLimit groups
		// of the same class already chose the topic. A groupLimit of 0 means no limit.
		CreateGroupTopic(ctx context.Context, gt GroupTopic, groupLimit int) (GroupTopic, error)
		GetGroupTopic(ctx context.Context, groupID, topicID int64) (GroupTopic, error)
		QueryGroupTopics(ctx context.Context, groupID int64) ([]GroupTopic, error)
		UpdateGroupTopic(ctx context.Context, gt GroupTopic) error
		DeleteGroupTopic(ctx context.Context, groupID, topicID int64) error
		// CountTopicGroups counts the groups of classID (all classes when 0) having chosen topicID.
		CountTopicGroups(ctx context.Context, topicID, classID int64) (int, error)

		// SaveScore creates or replaces the score of a student.
		SaveScore(ctx context.Context, score Score) error
		QueryScores(ctx context.Context, groupTopicID int64) ([]Score, error)
	}

	ServiceInterface interface {
		GetByID(ctx context.Context, id int64) (SeminarGroup, error)
		Query(ctx context.Context, filter QueryFilter) ([]SeminarGroup, error)
		// AutoGroup builds the groups of every class of the seminar's course.
		AutoGroup(ctx context.Context, seminarID, teacherID int64) ([]SeminarGroup, error)
		// UpdateReport is allowed to group members and the course teacher.
		UpdateReport(ctx context.Context, id, callerID int64, ug UpdateGroup) (SeminarGroup, error)

		SelectTopic(ctx context.Context, id, leaderID, topicID int64) (GroupTopic, error)
		DeselectTopic(ctx context.Context, id, leaderID, topicID int64) error
		QueryTopics(ctx context.Context, id int64) ([]GroupTopic, error)
		CountTopicGroups(ctx context.Context, topicID, classID int64) (int, error)

		SetReportGrade(ctx context.Context, id, teacherID int64, grade float64) (SeminarGroup, error)
		ScorePresentation(ctx context.Context, id, studentID int64, scores []TopicScore) (SeminarGroup, error)
	}

	Service struct {
		repo        Repository
		courseSvc   course.ServiceInterface
		seminarSvc  seminar.ServiceInterface
		fixgroupSvc fixgroup.ServiceInterface
		shuffle     func(n int, swap func(i, j int))
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	repo Repository,
	courseSvc course.ServiceInterface,
	seminarSvc seminar.ServiceInterface,
	fixgroupSvc fixgroup.ServiceInterface,
) *Service {
	return &Service{
		repo:        repo,
		courseSvc:   courseSvc,
		seminarSvc:  seminarSvc,
		fixgroupSvc: fixgroupSvc,
		shuffle:     rand.Shuffle,
	}
}

func (svc *Service) GetByID(ctx context.Context, id int64) (SeminarGroup, error) {
	return svc.repo.GetSeminarGroup(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]SeminarGroup, error) {
	if filter.SeminarIDs != nil && len(filter.SeminarIDs) == 0 {
		return []SeminarGroup{}, nil
	}
	return svc.repo.QuerySeminarGroups(ctx, filter)
}

func (svc *Service) AutoGroup(ctx context.Context, seminarID, teacherID int64) ([]SeminarGroup, error) {
	sem, crs, err := svc.seminarSvc.GetOwned(ctx, seminarID, teacherID)
	if err != nil {
		return nil, err
	}
	existing, err := svc.repo.QuerySeminarGroups(ctx, QueryFilter{SeminarIDs: []int64{seminarID}})
	if err != nil {
		return nil, errors.Wrap(err, "querying seminar groups")
	}
	if len(existing) > 0 {
		return nil, ErrAlreadyGrouped
	}

	classes, err := svc.courseSvc.QueryClassesByCourse(ctx, crs.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	size, err := svc.groupSize(ctx, seminarID)
	if err != nil {
		return nil, err
	}

	groups := make([]SeminarGroup, 0)
	for _, cls := range classes {
		studentIDs, err := svc.courseSvc.ListStudentIDs(ctx, cls.ID)
		if err != nil {
			return nil, errors.Wrap(err, "listing class students")
		}

		var planned []SeminarGroup
		if sem.IsFixed {
			planned, err = svc.planFixedGroups(ctx, sem, cls.ID, studentIDs)
			if err != nil {
				return nil, err
			}
		} else {
			planned = svc.planRandomGroups(sem, cls.ID, studentIDs, size)
		}

		for _, grp := range planned {
			grp, err = svc.repo.CreateSeminarGroup(ctx, grp)
			if err != nil {
				return nil, errors.Wrap(err, "creating seminar group")
			}
			groups = append(groups, grp)
		}
	}
	return groups, nil
}

// groupSize is the largest member limit of the seminar topics, defaultGroupSize when none is set.
func (svc *Service) groupSize(ctx context.Context, seminarID int64) (int, error) {
	topics, err := svc.seminarSvc.QueryTopics(ctx, seminarID)
	if err != nil {
		return 0, errors.Wrap(err, "querying topics")
	}
	size := 0
	for _, tpc := range topics {
		if tpc.GroupStudentLimit > size {
			size = tpc.GroupStudentLimit
		}
	}
	if size == 0 {
		size = defaultGroupSize
	}
	return size, nil
}

// planFixedGroups copies the fixed groups of the class; enrolled students without one share an extra group.
func (svc *Service) planFixedGroups(ctx context.Context, sem seminar.Seminar, classID int64, studentIDs []int64) ([]SeminarGroup, error) {
	fixGroups, err := svc.fixgroupSvc.QueryByClass(ctx, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying fixed groups")
	}

	enrolled := make(map[int64]bool, len(studentIDs))
	for _, id := range studentIDs {
		enrolled[id] = true
	}

	grouped := make(map[int64]bool, len(studentIDs))
	planned := make([]SeminarGroup, 0, len(fixGroups)+1)
	for _, fg := range fixGroups {
		grp := SeminarGroup{SeminarID: sem.ID, ClassID: classID}
		for _, id := range fg.MemberIDs {
			if enrolled[id] && !grouped[id] {
				grp.MemberIDs = append(grp.MemberIDs, id)
				grouped[id] = true
			}
		}
		if len(grp.MemberIDs) == 0 {
			continue
		}
		if grp.HasMember(fg.LeaderID) {
			grp.LeaderID = fg.LeaderID
		}
		planned = append(planned, grp)
	}

	leftover := SeminarGroup{SeminarID: sem.ID, ClassID: classID}
	for _, id := range studentIDs {
		if !grouped[id] {
			leftover.MemberIDs = append(leftover.MemberIDs, id)
		}
	}
	if len(leftover.MemberIDs) > 0 {
		planned = append(planned, leftover)
	}
	return planned, nil
}

// planRandomGroups shuffles the students of the class into groups of at most size members, led by their first member.
func (svc *Service) planRandomGroups(sem seminar.Seminar, classID int64, studentIDs []int64, size int) []SeminarGroup {
	ids := make([]int64, len(studentIDs))
	copy(ids, studentIDs)
	svc.shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	planned := make([]SeminarGroup, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		planned = append(planned, SeminarGroup{
			SeminarID: sem.ID,
			ClassID:   classID,
			LeaderID:  ids[start],
			MemberIDs: ids[start:end],
		})
	}
	return planned
}

func (svc *Service) UpdateReport(ctx context.Context, id, callerID int64, ug UpdateGroup) (SeminarGroup, error) {
	grp, err := svc.repo.GetSeminarGroup(ctx, id)
	if err != nil {
		return SeminarGroup{}, err
	}
	if !grp.HasMember(callerID) {
		if _, _, err := svc.seminarSvc.GetOwned(ctx, grp.SeminarID, callerID); err != nil {
			if errors.Cause(err) == course.ErrNotCourseTeacher {
				return SeminarGroup{}, ErrNotMember
			}
			return SeminarGroup{}, err
		}
	}
	grp.Report = ug.Report
	return svc.repo.UpdateSeminarGroup(ctx, grp)
}

func (svc *Service) SelectTopic(ctx context.Context, id, leaderID, topicID int64) (GroupTopic, error) {
	grp, err := svc.repo.GetSeminarGroup(ctx, id)
	if err != nil {
		return GroupTopic{}, err
	}
	if !grp.IsLeader(leaderID) {
		return GroupTopic{}, ErrNotLeader
	}
	tpc, err := svc.seminarSvc.GetTopic(ctx, topicID)
	if err != nil {
		return GroupTopic{}, err
	}
	if tpc.SeminarID != grp.SeminarID {
		return GroupTopic{}, ErrForeignTopic
	}

	if _, err := svc.repo.GetGroupTopic(ctx, grp.ID, tpc.ID); err == nil {
		return GroupTopic{}, ErrTopicSelected
	} else if errors.Cause(err) != ErrTopicNotSelected {
		return GroupTopic{}, err
	}
	if tpc.GroupStudentLimit > 0 && len(grp.MemberIDs) > tpc.GroupStudentLimit {
		return GroupTopic{}, ErrGroupTooLarge
	}
	return svc.repo.CreateGroupTopic(ctx, GroupTopic{GroupID: grp.ID, TopicID: tpc.ID}, tpc.GroupNumberLimit)
}

func (svc *Service) DeselectTopic(ctx context.Context, id, leaderID, topicID int64) error {
	grp, err := svc.repo.GetSeminarGroup(ctx, id)
	if err != nil {
		return err
	}
	if !grp.IsLeader(leaderID) {
		return ErrNotLeader
	}
	if err := svc.repo.DeleteGroupTopic(ctx, grp.ID, topicID); err != nil {
		return err
	}
	_, err = svc.recomputeGrades(ctx, grp)
	return err
}

func (svc *Service) QueryTopics(ctx context.Context, id int64) ([]GroupTopic, error) {
	if _, err := svc.repo.GetSeminarGroup(ctx, id); err != nil {
		return nil, err
	}
	return svc.repo.QueryGroupTopics(ctx, id)
}

func (svc *Service) CountTopicGroups(ctx context.Context, topicID, classID int64) (int, error) {
	return svc.repo.CountTopicGroups(ctx, topicID, classID)
}

func (svc *Service) SetReportGrade(ctx context.Context, id, teacherID int64, grade float64) (SeminarGroup, error) {
	grp, err := svc.repo.GetSeminarGroup(ctx, id)
	if err != nil {
		return SeminarGroup{}, err
	}
	if _, _, err := svc.seminarSvc.GetOwned(ctx, grp.SeminarID, teacherID); err != nil {
		return SeminarGroup{}, err
	}
	g := round2(grade)
	grp.ReportGrade = &g
	return svc.recomputeGrades(ctx, grp)
}

func (svc *Service) ScorePresentation(ctx context.Context, id, studentID int64, scores []TopicScore) (SeminarGroup, error) {
	grp, err := svc.repo.GetSeminarGroup(ctx, id)
	if err != nil {
		return SeminarGroup{}, err
	}
	if grp.HasMember(studentID) {
		return SeminarGroup{}, ErrOwnGroup
	}
	ok, err := svc.courseSvc.IsEnrolled(ctx, grp.ClassID, studentID)
	if err != nil {
		return SeminarGroup{}, errors.Wrap(err, "checking enrolment")
	}
	if !ok {
		return SeminarGroup{}, ErrNotClassmate
	}

	gts := make([]GroupTopic, 0, len(scores))
	for _, sc := range scores {
		gt, err := svc.repo.GetGroupTopic(ctx, grp.ID, sc.TopicID)
		if err != nil {
			if errors.Cause(err) == ErrTopicNotSelected {
				return SeminarGroup{}, core.NewArgumentError(fmt.Sprintf("topic %d was not presented by this group", sc.TopicID))
			}
			return SeminarGroup{}, err
		}
		gts = append(gts, gt)
	}

	for i, sc := range scores {
		gt := gts[i]
		if err := svc.repo.SaveScore(ctx, Score{GroupTopicID: gt.ID, StudentID: studentID, Grade: sc.Grade}); err != nil {
			return SeminarGroup{}, errors.Wrap(err, "saving score")
		}
		all, err := svc.repo.QueryScores(ctx, gt.ID)
		if err != nil {
			return SeminarGroup{}, errors.Wrap(err, "querying scores")
		}
		grades := make([]float64, 0, len(all))
		for _, s := range all {
			grades = append(grades, float64(s.Grade))
		}
		gt.PresentationGrade = mean(grades)
		if err := svc.repo.UpdateGroupTopic(ctx, gt); err != nil {
			return SeminarGroup{}, errors.Wrap(err, "updating group topic")
		}
	}
	return svc.recomputeGrades(ctx, grp)
}

// recomputeGrades derives the presentation grade from the group topics, then the final grade.
func (svc *Service) recomputeGrades(ctx context.Context, grp SeminarGroup) (SeminarGroup, error) {
	gts, err := svc.repo.QueryGroupTopics(ctx, grp.ID)
	if err != nil {
		return SeminarGroup{}, errors.Wrap(err, "querying group topics")
	}
	grades := make([]float64, 0, len(gts))
	for _, gt := range gts {
		if gt.PresentationGrade != nil {
			grades = append(grades, *gt.PresentationGrade)
		}
	}
	grp.PresentationGrade = mean(grades)

	sem, err := svc.seminarSvc.GetByID(ctx, grp.SeminarID)
	if err != nil {
		return SeminarGroup{}, errors.Wrap(err, "getting seminar")
	}
	crs, err := svc.courseSvc.GetByID(ctx, sem.CourseID)
	if err != nil {
		return SeminarGroup{}, errors.Wrap(err, "getting course")
	}
	grp.FinalGrade = finalGrade(grp.PresentationGrade, grp.ReportGrade, crs.PresentationPercentage, crs.ReportPercentage)
	return svc.repo.UpdateSeminarGroup(ctx, grp)
}
