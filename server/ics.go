package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sohamukute/CogScheduler/core/cogsched"
)

// calendarExport renders the latest persisted plan as an iCalendar file.
// Work blocks become VEVENTs with a 5-minute display alarm; breaks and
// commitments are left out of the calendar.
func (s *Server) calendarExport(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	rec, err := s.eng.LatestSchedule(ctx, uid)
	if err != nil {
		s.fail(c, err)
		return
	}

	var stored struct {
		Plan *cogsched.Plan `json:"plan"`
	}
	if err := json.Unmarshal(rec.Data, &stored); err != nil || stored.Plan == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stored schedule is unreadable"})
		return
	}

	cfg, err := s.eng.EffectiveConfig(ctx, uid)
	if err != nil {
		s.fail(c, err)
		return
	}

	ics := buildICS(stored.Plan.Blocks, cfg, time.Now())
	if err := s.eng.MarkCalendarSynced(ctx, rec.ID); err == nil {
		c.Header("X-Calendar-Synced", "true")
	}

	c.Header("Content-Disposition", `attachment; filename="cogscheduler.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(ics))
}

const icsStamp = "20060102T150405"

// buildICS serializes work blocks on today's date as floating local times.
func buildICS(blocks []cogsched.Block, cfg cogsched.Config, now time.Time) string {
	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	b.WriteString("PRODID:-//CogScheduler//Cognitive Scheduler//EN\r\n")
	b.WriteString("CALSCALE:GREGORIAN\r\n")

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	stamp := now.Format(icsStamp)

	for _, blk := range blocks {
		if blk.IsBreak {
			continue
		}
		start, err := cogsched.ParseClock(blk.StartTime)
		if err != nil {
			continue
		}
		end, err := cogsched.ParseClock(blk.EndTime)
		if err != nil {
			continue
		}

		category := "Light Work"
		if blk.CognitiveLoad >= cfg.DeepWorkLoadThreshold {
			category = "Deep Work"
		}

		b.WriteString("BEGIN:VEVENT\r\n")
		fmt.Fprintf(&b, "UID:%s@cogscheduler\r\n", uuid.NewString())
		fmt.Fprintf(&b, "DTSTAMP:%s\r\n", stamp)
		fmt.Fprintf(&b, "DTSTART:%s\r\n", day.Add(time.Duration(start)*time.Minute).Format(icsStamp))
		fmt.Fprintf(&b, "DTEND:%s\r\n", day.Add(time.Duration(end)*time.Minute).Format(icsStamp))
		fmt.Fprintf(&b, "SUMMARY:%s\r\n", escapeICS(blk.TaskTitle))
		fmt.Fprintf(&b, "DESCRIPTION:%s\r\n", escapeICS(fmt.Sprintf(
			"%s (load %.1f, energy %.0f%%, fatigue %.0f%%)",
			blk.Explanation, blk.CognitiveLoad, blk.EnergyAtStart*100, blk.FatigueAtStart*100)))
		fmt.Fprintf(&b, "CATEGORIES:%s\r\n", category)
		b.WriteString("BEGIN:VALARM\r\n")
		b.WriteString("TRIGGER:-PT5M\r\n")
		b.WriteString("ACTION:DISPLAY\r\n")
		fmt.Fprintf(&b, "DESCRIPTION:Starting soon: %s\r\n", escapeICS(blk.TaskTitle))
		b.WriteString("END:VALARM\r\n")
		b.WriteString("END:VEVENT\r\n")
	}

	b.WriteString("END:VCALENDAR\r\n")
	return b.String()
}

// escapeICS escapes the characters RFC 5545 reserves in text values.
func escapeICS(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, ";", `\;`)
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}
