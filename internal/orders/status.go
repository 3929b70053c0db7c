package orders

import (
	"encoding/json"

	"github.com/ariefcatur/go-bakery-orders/internal/apperr"
)

// Status ids are stored in tracking_events.status_id and are part of the API.
type Status int

const (
	StatusPending       Status = 1
	StatusInPreparation Status = 2
	StatusInTransit     Status = 3
	StatusDelivered     Status = 4
	StatusCancelled     Status = 5
)

var statusNames = map[Status]string{
	StatusPending:       "Pending",
	StatusInPreparation: "InPreparation",
	StatusInTransit:     "InTransit",
	StatusDelivered:     "Delivered",
	StatusCancelled:     "Cancelled",
}

// forward-only: steps may be skipped, never repeated or reversed
var validNext = map[Status]map[Status]bool{
	StatusPending:       {StatusInPreparation: true, StatusInTransit: true, StatusDelivered: true, StatusCancelled: true},
	StatusInPreparation: {StatusInTransit: true, StatusDelivered: true, StatusCancelled: true},
	StatusInTransit:     {StatusDelivered: true, StatusCancelled: true},
	StatusDelivered:     {},
	StatusCancelled:     {},
}

func ParseStatus(id int) (Status, error) {
	s := Status(id)
	if _, ok := statusNames[s]; !ok {
		return 0, apperr.Validation(apperr.CodeInvalidStatus, "unknown status id %d", id)
	}
	return s, nil
}

func (s Status) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return "Unknown"
}

func (s Status) Terminal() bool { return s == StatusDelivered || s == StatusCancelled }

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}{int(s), s.String()})
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// UnmarshalJSON accepts the object form written by MarshalJSON or a bare id.
func (s *Status) UnmarshalJSON(b []byte) error {
	var id int
	if err := json.Unmarshal(b, &id); err == nil {
		*s = Status(id)
		return nil
	}
	var obj struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*s = Status(obj.ID)
	return nil
}
