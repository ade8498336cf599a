package views

import (
	"github.com/AdamBeresnev/championship-draw/internal/draw"
)

type SlotView struct {
	Slot int
	Club *draw.Club
}

type GroupView struct {
	Number int
	Title  string
	Slots  []SlotView
}

// DrawData is the snapshot arranged the way the pages show it
type DrawData struct {
	Snapshot  draw.Snapshot
	Groups    []GroupView
	Available []draw.Club
	Filled    int
	Total     int
}

func PrepareDrawData(snapshot draw.Snapshot) DrawData {
	clubs := make(map[string]draw.Club, len(snapshot.Tournament.Clubs))
	for _, c := range snapshot.Tournament.Clubs {
		clubs[c.ID] = c
	}

	var groups []GroupView
	index := make(map[int]int)
	for _, p := range snapshot.Positions {
		i, ok := index[p.Group]
		if !ok {
			i = len(groups)
			index[p.Group] = i
			groups = append(groups, GroupView{
				Number: p.Group,
				Title:  draw.GroupTitle(snapshot.Tournament.Format, p.Group),
			})
		}

		slot := SlotView{Slot: p.Slot}
		if club, ok := clubs[p.ClubID]; ok {
			slot.Club = &club
		}
		groups[i].Slots = append(groups[i].Slots, slot)
	}

	return DrawData{
		Snapshot:  snapshot,
		Groups:    groups,
		Available: snapshot.AvailableClubs(),
		Filled:    snapshot.FilledPositions(),
		Total:     len(snapshot.Positions),
	}
}
