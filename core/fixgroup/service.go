package fixgroup

import (
	"context"

	"github.com/pkg/errors"

	"github.com/xmu-se/crms/core"
	"github.com/xmu-se/crms/core/course"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("fixed group not found")
	ErrNotMember      = core.NewNotFoundError("student is not a member of this group")
	ErrAlreadyGrouped = core.NewConflictError("student is already in a fixed group of this class")
	ErrHasLeader      = core.NewConflictError("this group already has a leader")
	ErrNotLeader      = core.NewPermissionError("only the group leader can do this")
)

type (
	Repository interface {
		CreateFixGroup(ctx context.Context, grp FixGroup) (FixGroup, error)
		// GetFixGroupByStudent returns the group of studentID in classID, with its members.
		GetFixGroupByStudent(ctx context.Context, classID, studentID int64) (FixGroup, error)
		QueryFixGroupsByClass(ctx context.Context, classID int64) ([]FixGroup, error)
		AddFixGroupMember(ctx context.Context, groupID, studentID int64) error
		RemoveFixGroupMember(ctx context.Context, groupID, studentID int64) error
		SetFixGroupLeader(ctx context.Context, groupID, leaderID int64) error
		DeleteFixGroup(ctx context.Context, id int64) error
	}

	ServiceInterface interface {
		GetByStudent(ctx context.Context, classID, studentID int64) (FixGroup, error)
		QueryByClass(ctx context.Context, classID int64) ([]FixGroup, error)
		// AddMember adds studentID to callerID's group, creating the group when callerID has none.
		AddMember(ctx context.Context, classID, callerID, studentID int64) (FixGroup, error)
		// RemoveMember lets the leader remove anyone and members remove themselves.
		RemoveMember(ctx context.Context, classID, callerID, studentID int64) error
		AssignLeader(ctx context.Context, classID, studentID int64) error
		ResignLeader(ctx context.Context, classID, studentID int64) error
	}

	Service struct {
		repo      Repository
		courseSvc course.ServiceInterface
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, courseSvc course.ServiceInterface) *Service {
	return &Service{repo: repo, courseSvc: courseSvc}
}

func (svc *Service) GetByStudent(ctx context.Context, classID, studentID int64) (FixGroup, error) {
	if _, err := svc.courseSvc.GetClass(ctx, classID); err != nil {
		return FixGroup{}, err
	}
	return svc.repo.GetFixGroupByStudent(ctx, classID, studentID)
}

func (svc *Service) QueryByClass(ctx context.Context, classID int64) ([]FixGroup, error) {
	return svc.repo.QueryFixGroupsByClass(ctx, classID)
}

func (svc *Service) checkEnrolled(ctx context.Context, classID, studentID int64) error {
	ok, err := svc.courseSvc.IsEnrolled(ctx, classID, studentID)
	if err != nil {
		return errors.Wrap(err, "checking enrolment")
	}
	if !ok {
		return course.ErrNotEnrolled
	}
	return nil
}

func (svc *Service) AddMember(ctx context.Context, classID, callerID, studentID int64) (FixGroup, error) {
	if _, err := svc.courseSvc.GetClass(ctx, classID); err != nil {
		return FixGroup{}, err
	}
	if err := svc.checkEnrolled(ctx, classID, callerID); err != nil {
		return FixGroup{}, err
	}
	if err := svc.checkEnrolled(ctx, classID, studentID); err != nil {
		return FixGroup{}, err
	}

	if studentID != callerID {
		if _, err := svc.repo.GetFixGroupByStudent(ctx, classID, studentID); err == nil {
			return FixGroup{}, ErrAlreadyGrouped
		} else if errors.Cause(err) != ErrNotFound {
			return FixGroup{}, err
		}
	}

	grp, err := svc.repo.GetFixGroupByStudent(ctx, classID, callerID)
	switch {
	case errors.Cause(err) == ErrNotFound:
		grp, err = svc.repo.CreateFixGroup(ctx, FixGroup{ClassID: classID, MemberIDs: []int64{callerID}})
		if err != nil {
			return FixGroup{}, errors.Wrap(err, "creating fixed group")
		}
	case err != nil:
		return FixGroup{}, err
	}
	if studentID == callerID {
		return grp, nil
	}

	if err := svc.repo.AddFixGroupMember(ctx, grp.ID, studentID); err != nil {
		return FixGroup{}, errors.Wrap(err, "adding fixed group member")
	}
	grp.MemberIDs = append(grp.MemberIDs, studentID)
	return grp, nil
}

func (svc *Service) RemoveMember(ctx context.Context, classID, callerID, studentID int64) error {
	grp, err := svc.GetByStudent(ctx, classID, callerID)
	if err != nil {
		return err
	}
	if callerID != studentID && !grp.IsLeader(callerID) {
		return ErrNotLeader
	}
	if !grp.HasMember(studentID) {
		return ErrNotMember
	}

	if len(grp.MemberIDs) == 1 {
		return svc.repo.DeleteFixGroup(ctx, grp.ID)
	}
	if grp.IsLeader(studentID) {
		if err := svc.repo.SetFixGroupLeader(ctx, grp.ID, 0); err != nil {
			return errors.Wrap(err, "unsetting fixed group leader")
		}
	}
	return svc.repo.RemoveFixGroupMember(ctx, grp.ID, studentID)
}

func (svc *Service) AssignLeader(ctx context.Context, classID, studentID int64) error {
	grp, err := svc.GetByStudent(ctx, classID, studentID)
	if err != nil {
		return err
	}
	if grp.HasLeader() {
		return ErrHasLeader
	}
	return svc.repo.SetFixGroupLeader(ctx, grp.ID, studentID)
}

func (svc *Service) ResignLeader(ctx context.Context, classID, studentID int64) error {
	grp, err := svc.GetByStudent(ctx, classID, studentID)
	if err != nil {
		return err
	}
	if !grp.IsLeader(studentID) {
		return ErrNotLeader
	}
	return svc.repo.SetFixGroupLeader(ctx, grp.ID, 0)
}
