// Package users covers the directory side of accounts: profiles, search
// and presence. Credential flows live in the auth service.
package users

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"esocial/internal/app/pagination"
	domainuser "esocial/internal/domain/user"
)

// DefaultSearchLimit is the directory search page size.
const DefaultSearchLimit = 20

type Service struct {
	Users  domainuser.Repository
	Search domainuser.Searcher
	Logger *slog.Logger
	Now    func() time.Time
}

type UpdateProfileParams struct {
	FirstName    *string
	LastName     *string
	Bio          *string
	AvatarURL    *string
	Faculty      *string
	Major        *string
	StudentGroup *string
	SocialLinks  []domainuser.SocialLink
}

func (s *Service) Profile(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	return s.Users.ByID(ctx, id)
}

// UpdateProfile applies the non-nil fields. Email, role and university are
// fixed at registration and not editable here.
func (s *Service) UpdateProfile(ctx context.Context, id domainuser.ID, params UpdateProfileParams) (*domainuser.User, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	user, err := s.Users.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if params.FirstName != nil {
		first := strings.TrimSpace(*params.FirstName)
		if first == "" {
			return nil, domainuser.ErrNameRequired
		}
		user.FirstName = first
	}
	if params.LastName != nil {
		last := strings.TrimSpace(*params.LastName)
		if last == "" {
			return nil, domainuser.ErrNameRequired
		}
		user.LastName = last
	}
	if params.Bio != nil {
		if err := user.UpdateBio(*params.Bio, now); err != nil {
			return nil, err
		}
	}
	if params.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*params.AvatarURL)
	}
	if params.Faculty != nil {
		user.Faculty = strings.TrimSpace(*params.Faculty)
	}
	if params.Major != nil {
		user.Major = strings.TrimSpace(*params.Major)
	}
	if params.StudentGroup != nil {
		user.StudentGroup = strings.TrimSpace(*params.StudentGroup)
	}
	if params.SocialLinks != nil {
		links := make([]domainuser.SocialLink, 0, len(params.SocialLinks))
		for _, link := range params.SocialLinks {
			platform := strings.TrimSpace(link.Platform)
			url := strings.TrimSpace(link.URL)
			if platform == "" || url == "" {
				continue
			}
			links = append(links, domainuser.SocialLink{Platform: platform, URL: url})
		}
		user.SocialLinks = links
	}
	user.UpdatedAt = now
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("profile updated", "user_id", user.ID)
	}
	return user, nil
}

// SetPresence records a heartbeat or explicit offline transition.
func (s *Service) SetPresence(ctx context.Context, id domainuser.ID, online bool) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	user, err := s.Users.ByID(ctx, id)
	if err != nil {
		return err
	}
	user.SetPresence(online, s.now())
	return s.Users.Save(ctx, user)
}

// SearchDirectory pages through users matching the filter, ordered by name.
func (s *Service) SearchDirectory(ctx context.Context, filter domainuser.SearchFilter, page, limit int) ([]domainuser.Snapshot, pagination.PageInfo, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, pagination.PageInfo{}, err
	}
	if s.Search == nil {
		return nil, pagination.PageInfo{}, errors.New("users: searcher required")
	}
	params, err := pagination.New(page, limit, DefaultSearchLimit)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	matches, err := s.Search.Search(ctx, filter)
	if err != nil {
		return nil, pagination.PageInfo{}, err
	}
	sort.Slice(matches, func(i, j int) bool {
		a := matches[i].LastName + " " + matches[i].FirstName
		b := matches[j].LastName + " " + matches[j].FirstName
		if a != b {
			return a < b
		}
		return matches[i].ID < matches[j].ID
	})
	snapshots := make([]domainuser.Snapshot, 0, len(matches))
	for i := range matches {
		snapshots = append(snapshots, matches[i].Snapshot())
	}
	pageItems, info := pagination.Slice(snapshots, params)
	return pageItems, info, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) ensureDependencies() error {
	if s.Users == nil {
		return errors.New("users: user repository required")
	}
	return nil
}
