package review

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"kpireview/internal/domain/period"
	"kpireview/internal/platform/filestore"
)

// Validate checks a submission. When p is nil the reviewed-at period is not
// checked. Detected file content is returned for the upload step.
func Validate(sub Submission, p *period.Period, now time.Time, maxFileBytes int64) (filestore.Content, error) {
	verr := &ValidationError{}
	if !sub.Met {
		if strings.TrimSpace(sub.Notes) == "" {
			verr.add("notes", "required when the KPI is not met")
		}
		if strings.TrimSpace(sub.Plan) == "" {
			verr.add("plan", "required when the KPI is not met")
		}
	}
	if !sub.ReviewedAt.IsZero() {
		if sub.ReviewedAt.After(now) {
			verr.add("reviewedAt", "must not be in the future")
		} else if p != nil && !p.Contains(sub.ReviewedAt) {
			verr.add("reviewedAt", fmt.Sprintf("must fall inside period %s", p.Key()))
		}
	}

	var content filestore.Content
	if sub.File != nil {
		size := max(sub.File.Size, int64(len(sub.File.Data)))
		if err := filestore.CheckSize(size, maxFileBytes); err != nil {
			verr.add("file", "exceeds the upload size limit")
		} else if len(sub.File.Data) == 0 {
			verr.add("file", "is empty")
		} else {
			c, err := filestore.Detect(sub.File.Data)
			if errors.Is(err, filestore.ErrUnsupportedType) {
				verr.add("file", "type "+c.MIME+" is not allowed")
			}
			content = c
		}
	}
	return content, verr.orNil()
}

// checkMove rejects a reviewed-at change that would carry an item out of the
// month or week it was scored in.
func checkMove(from, to time.Time) error {
	if to.Equal(from) {
		return nil
	}
	verr := &ValidationError{}
	for _, p := range []period.Period{period.MonthOf(from), period.WeekContaining(from)} {
		if !p.Contains(to) {
			verr.add("reviewedAt", fmt.Sprintf("must stay inside period %s; submit a new review to change periods", p.Key()))
		}
	}
	return verr.orNil()
}
