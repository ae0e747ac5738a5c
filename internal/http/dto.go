package http

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/room-scheduler/internal/application"
	"github.com/example/room-scheduler/internal/calendar"
)

type roomDTO struct {
	Name       string            `json:"name"`
	Capacity   *int              `json:"capacity"`
	Computers  bool              `json:"computers"`
	Projector  bool              `json:"projector"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func (d roomDTO) toRoom() application.Room {
	room := application.Room{
		Name:         strings.TrimSpace(d.Name),
		Capacity:     application.CapacityUnspecified,
		HasComputers: d.Computers,
		HasProjector: d.Projector,
		Attributes:   d.Attributes,
	}
	if d.Capacity != nil {
		room.Capacity = *d.Capacity
	}
	return room
}

func toRoomDTO(room application.Room) roomDTO {
	dto := roomDTO{
		Name:       room.Name,
		Computers:  room.HasComputers,
		Projector:  room.HasProjector,
		Attributes: room.Attributes,
	}
	if room.CapacityKnown() {
		capacity := room.Capacity
		dto.Capacity = &capacity
	}
	return dto
}

func toRoomDTOs(rooms []application.Room) []roomDTO {
	out := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomDTO(room))
	}
	return out
}

type slotDTO struct {
	Date            string `json:"date"`
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationMinutes int    `json:"duration_minutes"`
	Room            string `json:"room"`
	GroupID         string `json:"group_id,omitempty"`
}

func toSlotDTO(slot application.Slot) slotDTO {
	return slotDTO{
		Date:            slot.Date.String(),
		Start:           slot.Start.String(),
		End:             slot.End.String(),
		DurationMinutes: int(slot.Duration() / time.Minute),
		Room:            slot.Room.Name,
		GroupID:         slot.GroupID,
	}
}

func toSlotDTOs(slots []application.Slot) []slotDTO {
	out := make([]slotDTO, 0, len(slots))
	for _, slot := range slots {
		out = append(out, toSlotDTO(slot))
	}
	return out
}

// slotRequest identifies a slot. Either end or duration_minutes must be given.
type slotRequest struct {
	Date            string `json:"date"`
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationMinutes string `json:"duration_minutes"`
	Room            string `json:"room"`
}

func (r slotRequest) toInput() (application.SlotInput, error) {
	b := application.NewSlotBuilder().DateString(r.Date).StartString(r.Start).Room(r.Room)
	if strings.TrimSpace(r.End) != "" {
		b.EndString(r.End)
	}
	if strings.TrimSpace(r.DurationMinutes) != "" {
		b.DurationMinutes(r.DurationMinutes)
	}
	return b.Build()
}

func slotRequestFromQuery(values url.Values) slotRequest {
	return slotRequest{
		Date:            values.Get("date"),
		Start:           values.Get("start"),
		End:             values.Get("end"),
		DurationMinutes: values.Get("duration"),
		Room:            values.Get("room"),
	}
}

type recurrenceRequest struct {
	Weekday         string `json:"weekday"`
	Period          int    `json:"period"`
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationMinutes string `json:"duration_minutes"`
	From            string `json:"from"`
	Until           string `json:"until"`
	Room            string `json:"room"`
}

func (r recurrenceRequest) toInput() (application.RecurrenceInput, error) {
	b := application.NewRecurrenceBuilder().
		Period(r.Period).
		StartString(r.Start).
		FromString(r.From).
		UntilString(r.Until).
		Room(r.Room)
	if strings.TrimSpace(r.Weekday) != "" {
		b.WeekdayString(r.Weekday)
	}
	if strings.TrimSpace(r.End) != "" {
		b.EndString(r.End)
	}
	if strings.TrimSpace(r.DurationMinutes) != "" {
		b.DurationMinutes(r.DurationMinutes)
	}
	return b.Build()
}

type slotKeyDTO struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
	Room  string `json:"room"`
}

type groupDTO struct {
	ID      string       `json:"id"`
	Room    string       `json:"room"`
	Weekday string       `json:"weekday"`
	Period  int          `json:"period"`
	Start   string       `json:"start"`
	End     string       `json:"end"`
	From    string       `json:"from"`
	Until   string       `json:"until"`
	RRule   string       `json:"rrule,omitempty"`
	Members []slotKeyDTO `json:"members"`
}

func toGroupDTO(group application.RecurrenceGroup) groupDTO {
	members := make([]slotKeyDTO, 0, len(group.Members))
	for _, key := range group.Members {
		members = append(members, slotKeyDTO{
			Date:  key.Date.String(),
			Start: key.Start.String(),
			End:   key.End.String(),
			Room:  key.RoomName,
		})
	}
	return groupDTO{
		ID:      group.ID,
		Room:    group.RoomName,
		Weekday: group.Weekday.String(),
		Period:  group.Period,
		Start:   group.Start.String(),
		End:     group.End.String(),
		From:    group.From.String(),
		Until:   group.Until.String(),
		RRule:   group.RRule,
		Members: members,
	}
}

type freeSlotDTO struct {
	Room    string `json:"room"`
	Date    string `json:"date"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Minutes int    `json:"minutes"`
}

func toFreeSlotDTOs(free []application.FreeSlot) []freeSlotDTO {
	out := make([]freeSlotDTO, 0, len(free))
	for _, f := range free {
		out = append(out, freeSlotDTO{
			Room:    f.Room.Name,
			Date:    f.Date.String(),
			Start:   f.Start.String(),
			End:     f.End.String(),
			Minutes: int(f.End.Sub(f.Start) / time.Minute),
		})
	}
	return out
}

// queryParser collects problems with query parameters into one validation error.
type queryParser struct {
	values url.Values
	errs   map[string]string
}

func newQueryParser(values url.Values) *queryParser {
	return &queryParser{values: values}
}

func (p *queryParser) fail(field, message string) {
	if p.errs == nil {
		p.errs = make(map[string]string)
	}
	if _, exists := p.errs[field]; !exists {
		p.errs[field] = message
	}
}

func (p *queryParser) date(field string) (calendar.Date, bool) {
	raw := strings.TrimSpace(p.values.Get(field))
	if raw == "" {
		return calendar.Date{}, false
	}
	d, err := calendar.ParseDate(raw)
	if err != nil {
		p.fail(field, field+" must be formatted YYYY-MM-DD")
		return calendar.Date{}, false
	}
	return d, true
}

func (p *queryParser) integer(field string) (int, bool) {
	raw := strings.TrimSpace(p.values.Get(field))
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(field, field+" must be an integer")
		return 0, false
	}
	return n, true
}

func (p *queryParser) boolean(field string) (bool, bool) {
	raw := strings.TrimSpace(p.values.Get(field))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(field, field+" must be true or false")
		return false, false
	}
	return v, true
}

func (p *queryParser) order() application.SortOrder {
	order, ok := application.ParseSortOrder(strings.ToLower(strings.TrimSpace(p.values.Get("order"))))
	if !ok {
		p.fail("order", "order must be asc or desc")
	}
	return order
}

func (p *queryParser) fields() []string {
	return splitList(p.values.Get("fields"))
}

// attributes reads attr.<name>=<value> parameters.
func (p *queryParser) attributes() map[string]string {
	var attrs map[string]string
	for key, values := range p.values {
		name, ok := strings.CutPrefix(key, "attr.")
		if !ok || name == "" || len(values) == 0 {
			continue
		}
		if attrs == nil {
			attrs = make(map[string]string)
		}
		attrs[name] = values[0]
	}
	return attrs
}

func (p *queryParser) roomQuery() application.RoomQuery {
	q := application.RoomQuery{
		NameContains: strings.TrimSpace(p.values.Get("name")),
		Attributes:   p.attributes(),
	}
	if n, ok := p.integer("min_capacity"); ok {
		q.MinCapacity = &n
	}
	if v, ok := p.boolean("computers"); ok {
		q.HasComputers = &v
	}
	if v, ok := p.boolean("projector"); ok {
		q.HasProjector = &v
	}
	return q
}

func (p *queryParser) criteria() application.SearchCriteria {
	b := application.NewCriteriaBuilder()
	if d, ok := p.date("from"); ok {
		b.From(d)
	}
	if d, ok := p.date("to"); ok {
		b.Until(d)
	}
	if room := strings.TrimSpace(p.values.Get("room")); room != "" {
		b.Room(room)
	}
	if n, ok := p.integer("min_capacity"); ok {
		b.MinCapacity(n)
	}
	if v, ok := p.boolean("computers"); ok {
		b.Computers(v)
	}
	if v, ok := p.boolean("projector"); ok {
		b.Projector(v)
	}
	for name, value := range p.attributes() {
		b.Attribute(name, value)
	}
	return b.Build()
}

func (p *queryParser) err() error {
	if len(p.errs) == 0 {
		return nil
	}
	return &application.ValidationError{FieldErrors: p.errs}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func minutesDuration(minutes int) time.Duration {
	return time.Duration(minutes) * time.Minute
}
