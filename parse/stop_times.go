package parse

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/gezmi/plan-hikes/model"
)

type StopTimeCSV struct {
	TripID        string `csv:"trip_id"`
	StopID        string `csv:"stop_id"`
	StopSequence  int    `csv:"stop_sequence"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
}

// Converts "HH:MM:SS" to seconds since midnight. Hours past 23 are
// legal and mark trips running past midnight.
func parseStopTimeTime(s string) (int, error) {
	split := strings.Split(s, ":")
	if len(split) != 3 {
		return 0, fmt.Errorf("found %d parts in '%s'", len(split), s)
	}

	hms := [3]int{}
	for i, str := range split {
		j, err := strconv.Atoi(strings.TrimSpace(str))
		if err != nil {
			return 0, fmt.Errorf("non-integer in '%s' pos %d", s, i)
		}
		hms[i] = j
	}

	if hms[0] < 0 || hms[0] > 99 {
		return 0, fmt.Errorf("invalid hour in '%s'", s)
	}
	if hms[1] < 0 || hms[1] > 59 {
		return 0, fmt.Errorf("invalid minute in '%s'", s)
	}
	if hms[2] < 0 || hms[2] > 59 {
		return 0, fmt.Errorf("invalid second in '%s'", s)
	}

	return hms[0]*3600 + hms[1]*60 + hms[2], nil
}

func parseStopTimes(
	feed *Feed,
	data io.Reader,
	trips map[string]bool,
	stops map[string]bool,
) error {

	stopSeq := map[string][]int{}

	i := -1
	err := gocsv.UnmarshalToCallbackWithError(data, func(st *StopTimeCSV) error {
		i += 1
		if !trips[st.TripID] {
			return fmt.Errorf("unknown trip_id: '%s' (row %d)", st.TripID, i+1)
		}
		if st.StopID == "" {
			return fmt.Errorf("missing stop_id (row %d)", i+1)
		}
		if !stops[st.StopID] {
			return fmt.Errorf("unknown stop_id: '%s' (row %d)", st.StopID, i+1)
		}

		arrivalSecs, err := parseStopTimeTime(st.ArrivalTime)
		if err != nil {
			return errors.Wrapf(err, "parsing arrival_time (row %d)", i+1)
		}

		departureSecs, err := parseStopTimeTime(st.DepartureTime)
		if err != nil {
			return errors.Wrapf(err, "parsing departure_time (row %d)", i+1)
		}

		stopSeq[st.TripID] = append(stopSeq[st.TripID], st.StopSequence)

		feed.StopTimes = append(feed.StopTimes, model.StopTime{
			TripID:        st.TripID,
			StopID:        st.StopID,
			StopSequence:  st.StopSequence,
			ArrivalSecs:   arrivalSecs,
			DepartureSecs: departureSecs,
		})

		return nil
	})

	if err != nil {
		return errors.Wrap(err, "unmarshaling stop_times csv")
	}

	// Verify that stop_sequence is unique for each trip
	for tripID, seq := range stopSeq {
		seqSeen := map[int]bool{}
		for _, i := range seq {
			if seqSeen[i] {
				return fmt.Errorf("duplicate stop_sequence %d for trip_id '%s'", i, tripID)
			}
			seqSeen[i] = true
		}
	}

	return nil
}
