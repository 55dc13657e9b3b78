package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/asakaida/skillperm/internal/entities"
	"github.com/asakaida/skillperm/internal/repositories"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Directory is the YAML document loaded by DirectoryService.Import
type Directory struct {
	Organizations []DirectoryOrganization `yaml:"organizations"`
}

type DirectoryOrganization struct {
	ID         string            `yaml:"id"`
	Name       string            `yaml:"name"`
	PlatformID string            `yaml:"platform_id"`
	Members    []DirectoryMember `yaml:"members"`
	Skills     []DirectorySkill  `yaml:"skills"`
}

type DirectoryMember struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display_name"`
}

// DirectorySkill without an ID gets a generated one, or the ID of the
// existing skill with the same name
type DirectorySkill struct {
	ID         string           `yaml:"id,omitempty"`
	Name       string           `yaml:"name"`
	Restricted bool             `yaml:"restricted"`
	Grants     []DirectoryGrant `yaml:"grants,omitempty"`
}

// DirectoryGrant refers to a member of the same organization by display name
type DirectoryGrant struct {
	Member     string `yaml:"member"`
	Capability string `yaml:"capability"`
}

// ImportResult counts what Import created. Rows that already existed are skipped.
type ImportResult struct {
	Organizations int
	Members       int
	Skills        int
	Grants        int
	Skipped       int
}

// ParseDirectory decodes a directory document
func ParseDirectory(r io.Reader) (*Directory, error) {
	var dir Directory
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&dir); err != nil {
		return nil, fmt.Errorf("failed to parse directory YAML: %w", err)
	}
	return &dir, nil
}

// DirectoryService bootstraps organizations, members, skills and initial grants
type DirectoryService struct {
	orgRepo        repositories.OrganizationRepository
	memberRepo     repositories.MemberRepository
	skillRepo      repositories.SkillRepository
	permissionRepo repositories.PermissionRepository
}

// NewDirectoryService creates a new DirectoryService
func NewDirectoryService(
	orgRepo repositories.OrganizationRepository,
	memberRepo repositories.MemberRepository,
	skillRepo repositories.SkillRepository,
	permissionRepo repositories.PermissionRepository,
) *DirectoryService {
	return &DirectoryService{
		orgRepo:        orgRepo,
		memberRepo:     memberRepo,
		skillRepo:      skillRepo,
		permissionRepo: permissionRepo,
	}
}

// Import creates every row of the directory that does not exist yet.
// Organizations and members need IDs. Grants are upserted and not audited.
func (s *DirectoryService) Import(ctx context.Context, dir *Directory) (*ImportResult, error) {
	result := &ImportResult{}

	for i := range dir.Organizations {
		o := &dir.Organizations[i]
		created, err := s.create(s.orgRepo.Create(ctx, &entities.Organization{
			ID:         o.ID,
			Name:       o.Name,
			PlatformID: o.PlatformID,
		}))
		if err != nil {
			return result, fmt.Errorf("organization %q: %w", o.Name, err)
		}
		result.count(created, &result.Organizations)

		memberIDs := make(map[string]string, len(o.Members))
		for j := range o.Members {
			m := &o.Members[j]
			created, err := s.create(s.memberRepo.Create(ctx, &entities.Member{
				ID:             m.ID,
				OrganizationID: o.ID,
				DisplayName:    m.DisplayName,
			}))
			if err != nil {
				return result, fmt.Errorf("member %q: %w", m.DisplayName, err)
			}
			if !created {
				existing, err := s.memberRepo.Get(ctx, m.ID)
				if err != nil {
					return result, fmt.Errorf("member %q: %w", m.DisplayName, err)
				}
				if existing.OrganizationID != o.ID {
					return result, fmt.Errorf("member %q: ID %s belongs to organization %s: %w", m.DisplayName, m.ID, existing.OrganizationID, ErrCrossOrganization)
				}
			}
			result.count(created, &result.Members)
			memberIDs[m.DisplayName] = m.ID
		}

		for j := range o.Skills {
			sk := &o.Skills[j]
			generated := sk.ID == ""
			if generated {
				sk.ID = uuid.NewString()
			}
			created, err := s.create(s.skillRepo.Create(ctx, &entities.Skill{
				ID:             sk.ID,
				OrganizationID: o.ID,
				Name:           sk.Name,
				Restricted:     sk.Restricted,
			}))
			if err != nil {
				return result, fmt.Errorf("skill %q: %w", sk.Name, err)
			}
			result.count(created, &result.Skills)
			if !created {
				existing, err := s.existingSkill(ctx, o.ID, sk, generated)
				if err != nil {
					return result, fmt.Errorf("skill %q: %w", sk.Name, err)
				}
				sk.ID = existing.ID
			}

			for _, g := range sk.Grants {
				memberID, ok := memberIDs[g.Member]
				if !ok {
					return result, fmt.Errorf("grant on skill %q: member %q is not in organization %q: %w", sk.Name, g.Member, o.Name, ErrCrossOrganization)
				}
				capability, err := entities.ParseCapability(g.Capability)
				if err != nil {
					return result, fmt.Errorf("grant on skill %q: %w", sk.Name, err)
				}
				err = s.permissionRepo.SetCapability(ctx, &entities.Permission{
					MemberID:   memberID,
					SkillID:    sk.ID,
					Capability: capability,
				})
				if err != nil {
					return result, fmt.Errorf("grant on skill %q: %w", sk.Name, err)
				}
				result.Grants++
			}
		}
	}

	return result, nil
}

// existingSkill finds the row that made Create fail. An explicit ID that is
// taken by another organization is an error; otherwise the name decides.
func (s *DirectoryService) existingSkill(ctx context.Context, orgID string, sk *DirectorySkill, generated bool) (*entities.Skill, error) {
	if !generated {
		existing, err := s.skillRepo.Get(ctx, sk.ID)
		switch {
		case err == nil && existing.OrganizationID != orgID:
			return nil, fmt.Errorf("ID %s belongs to organization %s: %w", sk.ID, existing.OrganizationID, ErrCrossOrganization)
		case err == nil:
			return existing, nil
		case !errors.Is(err, repositories.ErrNotFound):
			return nil, err
		}
	}
	return s.skillRepo.GetByName(ctx, orgID, sk.Name)
}

// create turns ErrAlreadyExists into a skip
func (s *DirectoryService) create(err error) (bool, error) {
	if errors.Is(err, repositories.ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *ImportResult) count(created bool, n *int) {
	if created {
		*n++
		return
	}
	r.Skipped++
}
