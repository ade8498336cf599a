package export

import (
	"fmt"
	"io"

	"github.com/AdamBeresnev/championship-draw/internal/draw"
	"github.com/xuri/excelize/v2"
)

const (
	DrawSheet  = "Draw"
	ClubsSheet = "Clubs"
)

// WriteWorkbook writes the draw result and the roster as an xlsx workbook
func WriteWorkbook(w io.Writer, snapshot draw.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), DrawSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(ClubsSheet); err != nil {
		return err
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	drawRows := [][]any{{snapshot.Tournament.Name, string(snapshot.Status)}, {"Group", "Slot", "Club"}}
	for _, p := range snapshot.Positions {
		name := ""
		if club, ok := snapshot.Tournament.FindClub(p.ClubID); ok {
			name = club.Name
		}
		drawRows = append(drawRows, []any{draw.GroupTitle(snapshot.Tournament.Format, p.Group), p.Slot, name})
	}
	if err := writeRows(f, DrawSheet, drawRows); err != nil {
		return err
	}
	if err := f.SetRowStyle(DrawSheet, 1, 2, header); err != nil {
		return err
	}

	placed := make(map[string]draw.Position, len(snapshot.Positions))
	for _, p := range snapshot.Positions {
		if !p.Empty() {
			placed[p.ClubID] = p
		}
	}
	clubRows := [][]any{{"ID", "Name", "Logo", "Drawn"}}
	for _, c := range snapshot.Tournament.Clubs {
		drawn := ""
		if p, ok := placed[c.ID]; ok {
			drawn = fmt.Sprintf("%s / %d", draw.GroupTitle(snapshot.Tournament.Format, p.Group), p.Slot)
		}
		clubRows = append(clubRows, []any{c.ID, c.Name, c.LogoRef, drawn})
	}
	if err := writeRows(f, ClubsSheet, clubRows); err != nil {
		return err
	}
	if err := f.SetRowStyle(ClubsSheet, 1, 1, header); err != nil {
		return err
	}

	if err := f.SetColWidth(DrawSheet, "A", "C", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(ClubsSheet, "A", "D", 24); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for idx, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, idx+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, idx+1, err)
		}
	}
	return nil
}
