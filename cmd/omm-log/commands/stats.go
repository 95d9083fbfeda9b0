package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/omm-project/omm-go/pkg/log"
	"github.com/omm-project/omm-go/pkg/wire"
)

// Stats holds aggregate statistics about a capture file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Outcomes          map[log.Outcome]int
	Features          map[string]*FeatureStats
	Sessions          map[string]*SessionStats
	Discarded         int
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// FeatureStats aggregates the exchanges of one feature.
type FeatureStats struct {
	Calls    int
	Failures int
	Total    time.Duration
	Max      time.Duration
}

// Average returns the mean round-trip time.
func (f *FeatureStats) Average() time.Duration {
	if f.Calls == 0 {
		return 0
	}
	return f.Total / time.Duration(f.Calls)
}

// SessionStats holds statistics for a single device session.
type SessionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Device    string
}

func newStats() *Stats {
	return &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Outcomes:          make(map[log.Outcome]int),
		Features:          make(map[string]*FeatureStats),
		Sessions:          make(map[string]*SessionStats),
	}
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	sess, ok := s.Sessions[event.SessionID]
	if !ok {
		sess = &SessionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		s.Sessions[event.SessionID] = sess
	}
	sess.Events++
	if event.Timestamp.After(sess.LastSeen) {
		sess.LastSeen = event.Timestamp
	}
	if sess.Device == "" {
		sess.Device = event.Device
	}

	if event.Frame != nil && event.Frame.Discarded {
		s.Discarded++
	}
	if event.Error != nil {
		s.Errors++
	}

	if ex := event.Exchange; ex != nil {
		s.Outcomes[ex.Outcome]++
		name := fmt.Sprintf("index 0x%02x", ex.FeatureIndex)
		if ex.FeatureID != nil {
			name = wire.FeatureID(*ex.FeatureID).String()
		}
		fs, ok := s.Features[name]
		if !ok {
			fs = &FeatureStats{}
			s.Features[name] = fs
		}
		fs.Calls++
		if ex.Outcome != log.OutcomeSuccess {
			fs.Failures++
		}
		fs.Total += ex.RoundTrip
		fs.Max = max(fs.Max, ex.RoundTrip)
	}
}

// RunStats analyzes the capture file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := newStats()
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== HID++ Capture Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerProtocol, log.LayerSession} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.Outcomes) > 0 {
		fmt.Fprintln(w, "Exchange Outcomes:")
		outcomes := []log.Outcome{
			log.OutcomeSuccess, log.OutcomeProtocolError, log.OutcomeTimeout,
			log.OutcomeClosed, log.OutcomeCanceled, log.OutcomeSendFailed,
		}
		for _, o := range outcomes {
			if count := stats.Outcomes[o]; count > 0 {
				fmt.Fprintf(w, "  %-16s %d\n", o.String()+":", count)
			}
		}
		fmt.Fprintln(w)

		names := make([]string, 0, len(stats.Features))
		for name := range stats.Features {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintln(w, "Features:")
		for _, name := range names {
			fs := stats.Features[name]
			fmt.Fprintf(w, "  %-20s calls=%d failed=%d avg=%s max=%s\n",
				name, fs.Calls, fs.Failures, formatDuration(fs.Average()), formatDuration(fs.Max))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		type sessionInfo struct {
			id    string
			stats *SessionStats
		}
		sessions := make([]sessionInfo, 0, len(stats.Sessions))
		for id, ss := range stats.Sessions {
			sessions = append(sessions, sessionInfo{id, ss})
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].stats.FirstSeen.Before(sessions[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, s := range sessions {
			duration := s.stats.LastSeen.Sub(s.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenSessionID(s.id), s.stats.Events, duration)
			if s.stats.Device != "" {
				fmt.Fprintf(w, "           Device: %s\n", s.stats.Device)
			}
		}
	}

	if stats.Discarded > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Discarded reports: %d\n", stats.Discarded)
	}
	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
