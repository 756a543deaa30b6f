// Package server carries the request-dispatch layer: a minimal parser and
// router for one textual HTTP request, and the TCP server that feeds it.
// The wire protocol is one request per connection with no keep-alive, so a
// full HTTP stack is deliberately not used here.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tableflow/pkg/order"
	"tableflow/pkg/restaurant"
)

// Outcome classifies a routed request for the transport layer. The router
// never deals in status codes; the connection handler maps outcomes onto
// status lines.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeBadRequest
	OutcomeNotFound
)

// String returns the outcome label used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeBadRequest:
		return "bad_request"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "ok"
	}
}

// Result is a transport-ready response body plus its outcome class.
type Result struct {
	Outcome Outcome
	Body    string
}

// AddOrderRequest is the decoded body of a POST /orders request.
type AddOrderRequest struct {
	TableID uint32   `json:"table_id"`
	Items   []uint32 `json:"items"`
}

// response is the JSON envelope written for every routed reply except the
// plain-text 404. Data, when present, is itself an encoded JSON string.
type response struct {
	Data    string `json:"data,omitempty"`
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// Router maps one textual request onto a single table operation.
type Router struct {
	restaurant *restaurant.Restaurant
	tracer     trace.Tracer
}

// NewRouter creates a router over the given restaurant.
func NewRouter(r *restaurant.Restaurant) *Router {
	return &Router{
		restaurant: r,
		tracer:     otel.Tracer("tableflow/server"),
	}
}

// Handle parses the request line, dispatches on method and path, and
// returns a classified result. It never returns a Go error: anything wrong
// with the request becomes a Result the connection handler writes back.
func (rt *Router) Handle(ctx context.Context, raw string) Result {
	first, _, _ := strings.Cut(raw, "\n")
	fields := strings.Fields(first)
	if len(fields) != 3 {
		return failure("Invalid request")
	}
	method, path := fields[0], fields[1]

	switch {
	case method == http.MethodPost && path == "/orders":
		return rt.postOrders(ctx, raw)
	case method == http.MethodDelete && strings.HasPrefix(path, "/orders/"):
		return rt.deleteOrder(ctx, path)
	case method == http.MethodGet && strings.HasPrefix(path, "/orders/"):
		return rt.getOrders(ctx, path)
	default:
		return Result{Outcome: OutcomeNotFound, Body: "Not Found"}
	}
}

// postOrders decodes the request body and places one order per listed item.
func (rt *Router) postOrders(ctx context.Context, raw string) Result {
	_, span := rt.tracer.Start(ctx, "post_orders")
	defer span.End()

	_, body, ok := strings.Cut(raw, "\r\n\r\n")
	if !ok {
		return failure("Invalid request")
	}

	req, err := decodeAddOrderRequest(body)
	if err != nil {
		return failure("Failed to parse order request: " + err.Error())
	}
	span.SetAttributes(
		attribute.Int64("table_id", int64(req.TableID)),
		attribute.Int("items", len(req.Items)),
	)

	h, err := rt.restaurant.Table(req.TableID)
	if err != nil {
		return failure("Invalid table id")
	}
	h.AddOrders(req.Items)

	data, _ := json.Marshal(req)
	return success("Success!", string(data))
}

// deleteOrder removes one order addressed as /orders/{table_id}/{item_id}.
func (rt *Router) deleteOrder(ctx context.Context, path string) Result {
	_, span := rt.tracer.Start(ctx, "delete_order")
	defer span.End()

	parts := strings.Split(path, "/")
	if len(parts) != 4 {
		return failure("Invalid path")
	}
	tableID, err := parseID(parts[2])
	if err != nil {
		return failure("Invalid table id")
	}
	itemID, err := parseID(parts[3])
	if err != nil {
		return failure("Invalid item id")
	}
	span.SetAttributes(attribute.Int64("table_id", int64(tableID)))

	h, err := rt.restaurant.Table(tableID)
	if err != nil {
		return failure("Invalid table id")
	}
	if _, ok := h.RemoveOrder(itemID); !ok {
		return failure("Order not found")
	}
	return success(fmt.Sprintf("Removed %d from table %d", itemID, tableID), "")
}

// getOrders serves /orders/{table_id} and /orders/{table_id}/items/{item_id}.
func (rt *Router) getOrders(ctx context.Context, path string) Result {
	_, span := rt.tracer.Start(ctx, "get_orders")
	defer span.End()

	parts := strings.Split(path, "/")
	tableID, err := parseID(parts[2])
	if err != nil {
		return failure("Invalid table id")
	}
	span.SetAttributes(attribute.Int64("table_id", int64(tableID)))

	h, err := rt.restaurant.Table(tableID)
	if err != nil {
		return failure("Invalid table id")
	}

	switch {
	case len(parts) == 3:
		data, _ := json.Marshal(h.Orders())
		return success("Success!", string(data))
	case len(parts) == 5 && parts[3] == "items":
		itemID, err := parseID(parts[4])
		if err != nil {
			return failure("Invalid item id")
		}
		// A missing item is still a success here, with a null payload.
		var found *order.Order
		if o, ok := h.Order(itemID); ok {
			found = &o
		}
		data, _ := json.Marshal(found)
		return success("Success!", string(data))
	default:
		return failure("Invalid path")
	}
}

// decodeAddOrderRequest decodes a POST body, requiring both fields to be
// present: a zero-filled default must not silently place orders on table 0.
func decodeAddOrderRequest(body string) (AddOrderRequest, error) {
	var raw struct {
		TableID *uint32   `json:"table_id"`
		Items   *[]uint32 `json:"items"`
	}
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return AddOrderRequest{}, err
	}
	if raw.TableID == nil {
		return AddOrderRequest{}, errors.New("missing field table_id")
	}
	if raw.Items == nil {
		return AddOrderRequest{}, errors.New("missing field items")
	}
	return AddOrderRequest{TableID: *raw.TableID, Items: *raw.Items}, nil
}

func parseID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	return uint32(id), err
}

func success(message, data string) Result {
	body, _ := json.Marshal(response{Data: data, Message: message, Success: true})
	return Result{Outcome: OutcomeOK, Body: string(body)}
}

func failure(message string) Result {
	body, _ := json.Marshal(response{Message: message})
	return Result{Outcome: OutcomeBadRequest, Body: string(body)}
}
