package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/schemadrift/schemadrift/internal/models"
)

// Severity labels shared by every report
type Severity string

const (
	SeverityBreaking Severity = "breaking"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// ANSI colors: breaking is red, warning yellow, info blue
const (
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorReset  = "\033[0m"
)

// Formatter renders reports to a writer. Colors can be disabled for
// non-terminal output.
type Formatter struct {
	w      io.Writer
	colors bool
}

// NewFormatter creates a formatter writing to w
func NewFormatter(w io.Writer, colors bool) *Formatter {
	return &Formatter{w: w, colors: colors}
}

func (f *Formatter) paint(color, text string) string {
	if !f.colors {
		return text
	}
	return color + text + colorReset
}

func (f *Formatter) severityTag(s Severity) string {
	switch s {
	case SeverityBreaking:
		return f.paint(colorRed, "[breaking]")
	case SeverityWarning:
		return f.paint(colorYellow, "[warning]")
	default:
		return f.paint(colorBlue, "[info]")
	}
}

func reportHeader(title string) string {
	return fmt.Sprintf("%s  (report %s)\n", title, uuid.NewString()[:8])
}

// CompatReport renders schema diffs with their breaking classification.
// A clean result prints a single affirmative line.
func (f *Formatter) CompatReport(diffs []*models.SchemaDiff) {
	fmt.Fprint(f.w, reportHeader("Compatibility report"))

	if len(diffs) == 0 {
		fmt.Fprintln(f.w, "✅ No schema changes detected")
		return
	}

	breaking := 0
	for _, diff := range diffs {
		if diff.Breaking {
			breaking++
		}
	}

	for _, diff := range diffs {
		severity := SeverityInfo
		if diff.Breaking {
			severity = SeverityBreaking
		}
		name := diff.NodeName
		if name == "" {
			name = diff.NodeID
		}
		fmt.Fprintf(f.w, "%s %s (%s)\n", f.severityTag(severity), name, diff.ChangeType)

		for _, change := range diff.Changes {
			tag := f.severityTag(SeverityInfo)
			if change.Breaking {
				tag = f.severityTag(SeverityBreaking)
			} else if change.Kind == models.ChangeIntentChanged {
				tag = f.severityTag(SeverityWarning)
			}
			fmt.Fprintf(f.w, "  %s %s\n", tag, describeChange(change))
		}
	}

	if breaking == 0 {
		fmt.Fprintln(f.w, "✅ No breaking changes")
	} else {
		fmt.Fprintf(f.w, "%s %d breaking schema(s)\n", f.paint(colorRed, "✖"), breaking)
	}
}

func describeChange(c models.SchemaChange) string {
	switch c.Kind {
	case models.ChangeFieldAdded:
		return fmt.Sprintf("%s: field %q added (%s)", c.Kind, c.Field, c.New)
	case models.ChangeFieldRemoved:
		return fmt.Sprintf("%s: field %q removed (was %s)", c.Kind, c.Field, c.Old)
	case models.ChangeFieldTypeChanged:
		return fmt.Sprintf("%s: field %q %s -> %s", c.Kind, c.Field, c.Old, c.New)
	case models.ChangeFieldRequiredChanged:
		return fmt.Sprintf("%s: field %q %s -> %s", c.Kind, c.Field, c.Old, c.New)
	case models.ChangeEnumValueChanged:
		if c.Old != "" {
			return fmt.Sprintf("%s: value %q removed", c.Kind, c.Old)
		}
		return fmt.Sprintf("%s: value %q added", c.Kind, c.New)
	case models.ChangeIntentChanged:
		return fmt.Sprintf("%s: %q -> %q", c.Kind, c.Old, c.New)
	default:
		return string(c.Kind)
	}
}

// DriftReport renders intent drift, most-drifted first. A clean result
// prints a single affirmative line.
func (f *Formatter) DriftReport(drifts []*models.Drift) {
	fmt.Fprint(f.w, reportHeader("Intent drift report"))

	if len(drifts) == 0 {
		fmt.Fprintln(f.w, "✅ No intent drift detected")
		return
	}

	for _, d := range drifts {
		severity := SeverityInfo
		switch d.Severity {
		case models.DriftSeverityHigh:
			severity = SeverityBreaking
		case models.DriftSeverityMedium:
			severity = SeverityWarning
		}
		fmt.Fprintf(f.w, "%s %s score=%.2f (jaccard=%.2f cosine=%.2f edit=%.2f)\n",
			f.severityTag(severity), d.NodeID, d.Score, d.Jaccard, d.Cosine, d.Edit)
		if d.OldIntent != "" {
			fmt.Fprintf(f.w, "    was: %s\n", d.OldIntent)
		}
		if d.NewIntent != "" {
			fmt.Fprintf(f.w, "    now: %s\n", d.NewIntent)
		}
	}
}

// ImpactReport renders the downstream reach of a node with the chain
// each entry was discovered through
func (f *Formatter) ImpactReport(nodeID string, entries []models.ImpactEntry) {
	fmt.Fprint(f.w, reportHeader(fmt.Sprintf("Impact report for %s", nodeID)))

	if len(entries) == 0 {
		fmt.Fprintln(f.w, "✅ No downstream schemas affected")
		return
	}

	for _, e := range entries {
		fmt.Fprintf(f.w, "%s %s (distance %d)\n", f.severityTag(SeverityWarning), e.NodeID, e.Distance)
		fmt.Fprintf(f.w, "    via %s\n", strings.Join(e.Path, " -> "))
	}
}

// ProvenanceReport renders the upstream lineage of a node
func (f *Formatter) ProvenanceReport(nodeID string, entries []models.ProvenanceEntry) {
	fmt.Fprint(f.w, reportHeader(fmt.Sprintf("Provenance for %s", nodeID)))

	if len(entries) == 0 {
		fmt.Fprintln(f.w, "✅ No upstream lineage recorded")
		return
	}

	for _, e := range entries {
		fmt.Fprintf(f.w, "%s %s (%s, confidence %.1f)\n",
			f.severityTag(SeverityInfo), e.NodeID, e.Relationship, e.Confidence)
	}
}

// CrawlSummary renders one crawl result
func (f *Formatter) CrawlSummary(result *models.CrawlResult) {
	fmt.Fprintf(f.w, "Crawl complete in %s: %d added, %d modified, %d removed, %d unchanged\n",
		formatDuration(result.Duration), result.Added, result.Modified, result.Removed, result.Unchanged)
}

// EpochSummary renders a finalized epoch
func (f *Formatter) EpochSummary(epoch *models.Epoch, ref *models.ProofRef) {
	fmt.Fprintf(f.w, "Epoch %s sealed at %s\n", epoch.EpochID, epoch.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(f.w, "  artifacts:   %d\n", len(epoch.Artifacts))
	fmt.Fprintf(f.w, "  merkle root: %s\n", epoch.MerkleRoot)
	if ref != nil {
		fmt.Fprintf(f.w, "  proof ref:   %s (%s)\n", ref.ID, ref.Backend)
		if ref.Link != "" {
			fmt.Fprintf(f.w, "  link:        %s\n", ref.Link)
		}
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%.1fm", d.Minutes())
}
