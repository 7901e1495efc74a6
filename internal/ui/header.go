package ui

import (
	"fmt"
	"time"

	"github.com/five82/gridsync/internal/state"
)

// slowRequest is the row request age from which the header shows it.
const slowRequest = time.Second

// renderHeader renders the status bar.
func (m *Model) renderHeader() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < 100

	parts := []string{bg.Render("gridsync", styles.Logo)}

	switch {
	case m.conn != nil:
		parts = append(parts, bg.Render("● ON", styles.SuccessText))
	case m.snapshot.IsOffline():
		parts = append(parts, bg.Render("● OFFLINE", styles.DangerText))
	case m.snapshot.Phase == state.Connecting:
		parts = append(parts, bg.Render("● CONNECTING", styles.WarningText))
	default:
		parts = append(parts, bg.Render("● OFF", styles.DangerText))
	}

	url := m.url
	if url == "" {
		url = m.snapshot.ServerURL
	}
	if url != "" && !compact {
		parts = append(parts, bg.Render(truncate(url, 40), styles.MutedText))
	}

	if m.conn != nil {
		ds := m.conn.DataSource()
		parts = append(parts,
			bg.Render("Rows:", styles.MutedText)+bg.Space()+
				bg.Render(fmt.Sprintf("%d/%d", min(m.cursor+1, ds.Size()), ds.Size()), styles.Text),
			bg.Render("Cache:", styles.MutedText)+bg.Space()+
				bg.Render(ds.CachedRange().String(), styles.InfoText),
		)
		if sel := m.conn.Selection().Len(); sel > 0 {
			parts = append(parts,
				bg.Render("Selected:", styles.MutedText)+bg.Space()+
					bg.Render(fmt.Sprintf("%d", sel), styles.AccentText))
		}
		if pending := len(ds.Pending()) + m.conn.Pending(); pending > 0 {
			text := fmt.Sprintf("%d", pending)
			if age := ds.OldestPending(time.Now()); age >= slowRequest {
				text += fmt.Sprintf(" (%s)", age.Round(100*time.Millisecond))
			}
			parts = append(parts,
				bg.Render("Pending:", styles.MutedText)+bg.Space()+
					bg.Render(text, styles.WarningText))
		}
	}

	if m.busy() {
		parts = append(parts, bg.Render(m.spinner.View(), styles.AccentText))
	}

	if m.conn == nil && !m.snapshot.RetryAt.IsZero() {
		wait := time.Until(m.snapshot.RetryAt).Round(time.Second)
		parts = append(parts, bg.Render(fmt.Sprintf("Retrying in %s", max(wait, 0)), styles.WarningText.Bold(true)))
	}

	if m.notice != "" {
		style := styles.MutedText
		if m.noticeDanger {
			style = styles.DangerText
		}
		limit := 80
		if compact {
			limit = 40
		}
		parts = append(parts, bg.Render(truncate(m.notice, limit), style))
	} else if m.snapshot.LastError != nil && m.conn == nil {
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText.Bold(true))+bg.Space()+
				bg.Render(truncate(m.snapshot.LastError.Error(), 60), styles.DangerText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}
