// Package http provides HTTP handlers and middleware for the room scheduler API.
//
// The router exposes the following endpoints:
//   - GET /rooms, POST /rooms: room lookup (name, min_capacity, computers,
//     projector, attr.<name> filters) and registration using the `roomDTO`
//     payload defined in dto.go.
//   - GET /rooms/{name}, PUT /rooms/{name}, DELETE /rooms/{name}: single room
//     access. Deleting a room reports how many slots were removed with it.
//   - GET /slots, POST /slots, DELETE /slots: slot search (from, to, room,
//     capacity and equipment filters, order=asc|desc), booking and removal.
//     Bookings that collide answer 409 with the existing slot in `conflict`.
//   - POST /slots/move: body {"from": slot, "to": slot}.
//   - GET /schedule?from&to: slots in the half open date range, or every slot
//     when both bounds are omitted.
//   - GET /availability?date&start&end|duration&room: reports the slots that
//     would collide with the candidate.
//   - GET /free-slots?from&until&min_duration: unbooked windows per room and day.
//   - GET /recurrences, POST /recurrences, GET /recurrences/{id},
//     DELETE /recurrences/{id}: weekly recurring bookings.
//   - GET /export/slots, GET /export/rooms: CSV or JSON downloads selected by
//     format, with optional fields projection.
//
// Error bodies are {"error_code","message","errors","conflict"} with messages
// localized to Japanese.
package http
