package rail

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// JourneyFilter restricts journey listings. Zero values mean no restriction.
type JourneyFilter struct {
	// Date matches the calendar date of departure_time in the service time zone.
	Date    time.Time
	TrainID int64
}

func (f JourneyFilter) HasDate() bool { return !f.Date.IsZero() }

// Matches reports whether j passes the filter; loc is the zone calendar dates are taken in.
func (f JourneyFilter) Matches(j Journey, loc *time.Location) bool {
	if f.TrainID != 0 && j.Train.ID != f.TrainID {
		return false
	}
	if f.HasDate() {
		dy, dm, dd := j.DepartureTime.In(loc).Date()
		fy, fm, fd := f.Date.Date()
		if dy != fy || dm != fm || dd != fd {
			return false
		}
	}
	return true
}

// ParseJourneyFilter reads the date and train query parameters.
func ParseJourneyFilter(q url.Values) (JourneyFilter, error) {
	var f JourneyFilter
	if v := strings.TrimSpace(q.Get("date")); v != "" {
		d, err := time.Parse(DateLayout, v)
		if err != nil {
			return f, fieldErr("date", "date has wrong format, use YYYY-MM-DD")
		}
		f.Date = d
	}
	if v := strings.TrimSpace(q.Get("train")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return f, fieldErr("train", "%q is not a valid train id", v)
		}
		f.TrainID = id
	}
	return f, nil
}

// TrainFilter restricts train listings by a case-insensitive substring of the train type name.
type TrainFilter struct {
	TrainType string
}

func (f TrainFilter) Matches(t Train) bool {
	if f.TrainType == "" {
		return true
	}
	if t.TrainType == nil {
		return false
	}
	return strings.Contains(strings.ToLower(t.TrainType.Name), strings.ToLower(f.TrainType))
}

func ParseTrainFilter(q url.Values) TrainFilter {
	return TrainFilter{TrainType: strings.TrimSpace(q.Get("train_type"))}
}
