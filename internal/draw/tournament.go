package draw

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/AdamBeresnev/championship-draw/internal/utils"
)

type Format string

const (
	GroupsFormat   Format = "groups"
	KnockoutFormat Format = "knockout"
)

type Field string

const (
	FieldName          Field = "name"
	FieldFormat        Field = "format"
	FieldGroups        Field = "groups"
	FieldClubsPerGroup Field = "clubsPerGroup"
	FieldTotalClubs    Field = "totalClubs"
)

const (
	DefaultGroups        = 4
	DefaultClubsPerGroup = 4

	MinGroupSetting = 1
	MaxGroupSetting = 8
)

// Bracket sizes offered for knockout draws
var KnockoutSizes = []int{8, 16, 32}

type Tournament struct {
	Name          string `json:"name"`
	Format        Format `json:"format"`
	TotalClubs    int    `json:"totalClubs"`
	Groups        *int   `json:"groups,omitempty"`
	ClubsPerGroup *int   `json:"clubsPerGroup,omitempty"`
	Clubs         []Club `json:"clubs"`
}

func DefaultTournament() Tournament {
	return Tournament{
		Format:        GroupsFormat,
		TotalClubs:    DefaultGroups * DefaultClubsPerGroup,
		Groups:        utils.Ptr(DefaultGroups),
		ClubsPerGroup: utils.Ptr(DefaultClubsPerGroup),
		Clubs:         []Club{},
	}
}

// Clone returns a copy that shares nothing with t
func (t Tournament) Clone() Tournament {
	c := t
	if t.Groups != nil {
		c.Groups = utils.Ptr(*t.Groups)
	}
	if t.ClubsPerGroup != nil {
		c.ClubsPerGroup = utils.Ptr(*t.ClubsPerGroup)
	}
	c.Clubs = slices.Clone(t.Clubs)
	if c.Clubs == nil {
		c.Clubs = []Club{}
	}
	return c
}

func (t Tournament) FindClub(id string) (Club, bool) {
	i := t.clubIndex(id)
	if i < 0 {
		return Club{}, false
	}
	return t.Clubs[i], true
}

func (t Tournament) clubIndex(id string) int {
	return slices.IndexFunc(t.Clubs, func(c Club) bool { return c.ID == id })
}

func (t Tournament) RosterFull() bool {
	return len(t.Clubs) >= t.TotalClubs
}

// ApplyField applies a single configuration change and the derivation rules
// that depend on it. t is not modified.
func ApplyField(t Tournament, field Field, value string) (Tournament, error) {
	updated := t.Clone()

	switch field {
	case FieldName:
		updated.Name = value

	case FieldFormat:
		switch Format(strings.TrimSpace(value)) {
		case KnockoutFormat:
			updated.Format = KnockoutFormat
			updated.Groups = nil
			updated.ClubsPerGroup = nil
			updated.TotalClubs = knockoutSizeFor(updated.TotalClubs)
		case GroupsFormat:
			updated.Format = GroupsFormat
			updated.Groups = utils.Ptr(DefaultGroups)
			updated.ClubsPerGroup = utils.Ptr(DefaultClubsPerGroup)
			updated.TotalClubs = DefaultGroups * DefaultClubsPerGroup
		default:
			return t, validationError("unknown format %q", value)
		}

	case FieldGroups, FieldClubsPerGroup:
		if updated.Format != GroupsFormat {
			return t, validationError("%s only applies to the groups format", field)
		}
		n, err := parseGroupSetting(field, value)
		if err != nil {
			return t, err
		}
		if field == FieldGroups {
			updated.Groups = &n
		} else {
			updated.ClubsPerGroup = &n
		}
		updated.TotalClubs = DeriveTotalClubs(updated.Groups, updated.ClubsPerGroup)

	case FieldTotalClubs:
		if updated.Format != KnockoutFormat {
			return t, validationError("totalClubs is derived from groups and clubsPerGroup")
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || !slices.Contains(KnockoutSizes, n) {
			return t, validationError("knockout draws take 8, 16 or 32 clubs, got %q", value)
		}
		updated.TotalClubs = n

	default:
		return t, validationError("unknown field %q", field)
	}

	return updated, nil
}

// DeriveTotalClubs mirrors the groups invariant, missing values count as 1
func DeriveTotalClubs(groups, clubsPerGroup *int) int {
	return max(utils.OrZero(groups), 1) * max(utils.OrZero(clubsPerGroup), 1)
}

func parseGroupSetting(field Field, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, validationError("%s must be a number, got %q", field, value)
	}
	if n < MinGroupSetting || n > MaxGroupSetting {
		return 0, validationError("%s must be between %d and %d", field, MinGroupSetting, MaxGroupSetting)
	}
	return n, nil
}

// Rounds up to the nearest bracket size, so 9 becomes 16 and anything above 32 becomes 32
func knockoutSizeFor(count int) int {
	if slices.Contains(KnockoutSizes, count) {
		return count
	}
	if count <= KnockoutSizes[0] {
		return KnockoutSizes[0]
	}

	size := int(math.Pow(2, math.Ceil(math.Log2(float64(count)))))
	return min(size, KnockoutSizes[len(KnockoutSizes)-1])
}

// CheckNewClub reports whether a club with this name could join the roster
func CheckNewClub(t Tournament, name string) error {
	if strings.TrimSpace(name) == "" {
		return validationError("club name is required")
	}
	if t.RosterFull() {
		return validationError("at most %d clubs are allowed", t.TotalClubs)
	}
	return nil
}

// AddClub appends a club to the roster, the caller supplies id and logo
func AddClub(t Tournament, club Club) (Tournament, error) {
	club.Name = strings.TrimSpace(club.Name)
	if err := CheckNewClub(t, club.Name); err != nil {
		return t, err
	}
	if t.clubIndex(club.ID) >= 0 {
		return t, validationError("club id %q is already registered", club.ID)
	}

	updated := t.Clone()
	updated.Clubs = append(updated.Clubs, club)
	return updated, nil
}

func UpdateClub(t Tournament, id string, patch ClubPatch) (Tournament, error) {
	i := t.clubIndex(id)
	if i < 0 {
		return t, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	club, err := patch.apply(t.Clubs[i])
	if err != nil {
		return t, err
	}

	updated := t.Clone()
	updated.Clubs[i] = club
	return updated, nil
}

// RemoveClub is a no-op for unknown ids
func RemoveClub(t Tournament, id string) Tournament {
	updated := t.Clone()
	updated.Clubs = slices.DeleteFunc(updated.Clubs, func(c Club) bool { return c.ID == id })
	return updated
}
