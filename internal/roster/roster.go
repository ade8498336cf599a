package roster

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/AdamBeresnev/championship-draw/internal/draw"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// Roster is a tournament setup prepared outside the admin page
type Roster struct {
	Name          string  `yaml:"name"`
	Format        string  `yaml:"format"`
	Groups        *int    `yaml:"groups"`
	ClubsPerGroup *int    `yaml:"clubs_per_group"`
	TotalClubs    *int    `yaml:"total_clubs"`
	Clubs         []Entry `yaml:"clubs"`
}

type Entry struct {
	Name string `yaml:"name"`
	Logo string `yaml:"logo"`
}

func ParseYAML(r io.Reader) (*Roster, error) {
	var roster Roster
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&roster); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("roster file is empty")
		}
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}
	return &roster, nil
}

// ParseXLSX reads clubs from the first sheet: name in column A, optional
// logo in column B. A first row reading "Name" is treated as a header.
func ParseXLSX(data []byte) (*Roster, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("XLSX file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	roster := &Roster{}
	for i, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(row[0]), "name") {
			continue
		}
		entry := Entry{Name: strings.TrimSpace(row[0])}
		if len(row) > 1 {
			entry.Logo = strings.TrimSpace(row[1])
		}
		roster.Clubs = append(roster.Clubs, entry)
	}
	return roster, nil
}

// Target is what an import writes to
type Target interface {
	Snapshot(ctx context.Context) (*draw.Snapshot, error)
	SetField(ctx context.Context, field draw.Field, value string) (*draw.Snapshot, error)
	AddClub(ctx context.Context, name, logoRef string) (draw.Club, error)
}

type setting struct {
	field draw.Field
	value string
}

func (r *Roster) settings() []setting {
	var settings []setting
	if r.Name != "" {
		settings = append(settings, setting{draw.FieldName, r.Name})
	}
	if r.Format != "" {
		settings = append(settings, setting{draw.FieldFormat, r.Format})
	}
	if r.Groups != nil {
		settings = append(settings, setting{draw.FieldGroups, strconv.Itoa(*r.Groups)})
	}
	if r.ClubsPerGroup != nil {
		settings = append(settings, setting{draw.FieldClubsPerGroup, strconv.Itoa(*r.ClubsPerGroup)})
	}
	if r.TotalClubs != nil {
		settings = append(settings, setting{draw.FieldTotalClubs, strconv.Itoa(*r.TotalClubs)})
	}
	return settings
}

// Check replays the whole import against t in memory and returns the first
// problem, so nothing is written for a roster that can't be applied.
func (r *Roster) Check(status draw.Status, t draw.Tournament) error {
	if !status.CanEditConfig() {
		return draw.ErrLocked
	}

	var err error
	for _, s := range r.settings() {
		if t, err = draw.ApplyField(t, s.field, s.value); err != nil {
			return fmt.Errorf("invalid %s: %w", s.field, err)
		}
	}
	for i, entry := range r.Clubs {
		club := draw.Club{ID: fmt.Sprintf("import-%d", i), Name: entry.Name}
		if t, err = draw.AddClub(t, club); err != nil {
			return fmt.Errorf("club %d (%q) can't be added: %w", i+1, entry.Name, err)
		}
	}
	return nil
}

// Apply checks the roster against the current record, then writes the
// configuration first so the capacity check sees the final size, then
// registers the clubs in file order.
func (r *Roster) Apply(ctx context.Context, target Target) (int, error) {
	snapshot, err := target.Snapshot(ctx)
	if err != nil {
		return 0, err
	}
	if err := r.Check(snapshot.Status, snapshot.Tournament); err != nil {
		return 0, err
	}

	for _, s := range r.settings() {
		if _, err := target.SetField(ctx, s.field, s.value); err != nil {
			return 0, fmt.Errorf("failed to set %s: %w", s.field, err)
		}
	}

	added := 0
	for _, entry := range r.Clubs {
		if _, err := target.AddClub(ctx, entry.Name, entry.Logo); err != nil {
			return added, fmt.Errorf("failed to add club %q: %w", entry.Name, err)
		}
		added++
	}
	return added, nil
}
