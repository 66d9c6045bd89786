package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/air-quality-explorer/internal/common"
	"github.com/i474232898/air-quality-explorer/internal/continents"
	"github.com/i474232898/air-quality-explorer/internal/daterange"
	"github.com/i474232898/air-quality-explorer/internal/dashboard"
	"github.com/i474232898/air-quality-explorer/internal/monitor"
	"github.com/i474232898/air-quality-explorer/internal/store"
)

var validate = validator.New()

// Services are the handlers' collaborators. Nil members disable their routes.
type Services struct {
	Sessions   *dashboard.Sessions
	Monitor    *monitor.Service
	Continents *continents.Catalog
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, svc Services) {
	v1 := app.Group("/api/v1")

	v1.Get("/range", deriveRange)

	if svc.Sessions != nil {
		registerSessions(v1, svc.Sessions)
	}
	if svc.Continents != nil {
		registerContinents(v1, svc.Continents)
	}
	if svc.Monitor != nil {
		registerWatches(v1, svc.Monitor)
	}
}

func registerSessions(r fiber.Router, sessions *dashboard.Sessions) {
	r.Post("/sessions", func(c *fiber.Ctx) error {
		s, st, err := sessions.Create(c.UserContext())
		if err != nil {
			// The session exists; the client may retry load_countries.
			return c.Status(fiber.StatusBadGateway).JSON(sessionResponse(s.ID, st))
		}
		return c.Status(fiber.StatusCreated).JSON(sessionResponse(s.ID, st))
	})

	r.Get("/sessions/:id", func(c *fiber.Ctx) error {
		s, err := sessions.Get(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}
		return c.JSON(sessionResponse(s.ID, s.State()))
	})

	r.Post("/sessions/:id/events", func(c *fiber.Ctx) error {
		s, err := sessions.Get(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}

		var req eventRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid event body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		ev, err := req.toEvent()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		st, err := s.Dispatch(c.UserContext(), ev)
		switch {
		case err == nil:
			return c.JSON(sessionResponse(s.ID, st))
		case dashboard.IsInputError(err):
			return c.Status(fiber.StatusBadRequest).JSON(errorResponse(s.ID, st))
		default:
			return c.Status(fiber.StatusBadGateway).JSON(errorResponse(s.ID, st))
		}
	})
}

func sessionResponse(id string, st dashboard.State) fiber.Map {
	return fiber.Map{
		"id":    id,
		"state": st,
	}
}

func errorResponse(id string, st dashboard.State) fiber.Map {
	return fiber.Map{
		"error":   true,
		"message": st.Error,
		"id":      id,
		"state":   st,
	}
}

// eventRequest is the JSON envelope of a dashboard event.
type eventRequest struct {
	Type        string `json:"type" validate:"required,oneof=load_countries select_country select_station select_sensor change_granularity change_start_date change_end_date request_latest request_history"`
	Code        string `json:"code" validate:"required_if=Type select_country"`
	StationID   int64  `json:"stationId" validate:"required_if=Type select_station,gte=0"`
	ParameterID int64  `json:"parameterId" validate:"required_if=Type select_sensor,gte=0"`
	SensorID    int64  `json:"sensorId" validate:"required_if=Type select_sensor,gte=0"`
	Granularity string `json:"granularity" validate:"required_if=Type change_granularity"`
	Date        string `json:"date" validate:"required_if=Type change_start_date,required_if=Type change_end_date"`
}

func (r eventRequest) toEvent() (dashboard.Event, error) {
	switch r.Type {
	case "load_countries":
		return dashboard.LoadCountries{}, nil
	case "select_country":
		return dashboard.SelectCountry{Code: r.Code}, nil
	case "select_station":
		return dashboard.SelectStation{StationID: r.StationID}, nil
	case "select_sensor":
		return dashboard.SelectSensor{ParameterID: r.ParameterID, SensorID: r.SensorID}, nil
	case "change_granularity":
		return dashboard.ChangeGranularity{Granularity: daterange.ParseGranularity(r.Granularity)}, nil
	case "change_start_date", "change_end_date":
		d, err := parseDateValue(r.Date)
		if err != nil {
			return nil, err
		}
		if r.Type == "change_start_date" {
			return dashboard.ChangeStartDate{Date: d}, nil
		}
		return dashboard.ChangeEndDate{Date: d}, nil
	case "request_latest":
		return dashboard.RequestLatest{}, nil
	case "request_history":
		return dashboard.RequestHistory{}, nil
	}
	return nil, dashboard.ErrUnknownEvent
}

// rangeQuery holds query parameters for the range endpoint.
type rangeQuery struct {
	Latest string `validate:"required"`
	Agg    string
	End    string
}

func deriveRange(c *fiber.Ctx) error {
	q := rangeQuery{
		Latest: c.Query("latest"),
		Agg:    c.Query("agg"),
		End:    c.Query("end"),
	}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	latest, err := parseDateValue(q.Latest)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid latest: "+err.Error())
	}
	var end *time.Time
	if q.End != "" {
		e, err := parseDateValue(q.End)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid end: "+err.Error())
		}
		end = &e
	}

	g := daterange.ParseGranularity(q.Agg)
	w := daterange.Derive(latest, g, end)
	from, to := w.QueryBounds()
	return c.JSON(fiber.Map{
		"granularity": g,
		"known":       g.Known(),
		"label":       g.Label(),
		"start":       w.Start.Format(daterange.DateLayout),
		"end":         w.End.Format(daterange.DateLayout),
		"dateFrom":    from,
		"dateTo":      to,
	})
}

func registerContinents(r fiber.Router, catalog *continents.Catalog) {
	r.Get("/continents", func(c *fiber.Ctx) error {
		return c.JSON(catalog.All())
	})

	r.Get("/continents/:key", func(c *fiber.Ctx) error {
		cont, ok := catalog.Get(c.Params("key"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "unknown continent")
		}
		return c.JSON(cont)
	})
}

func registerWatches(r fiber.Router, service *monitor.Service) {
	r.Get("/watches", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"watches": service.Watches()})
	})

	r.Get("/watches/:location/:sensor/latest", func(c *fiber.Ctx) error {
		w, err := parseWatchParams(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		reading, err := service.GetLatest(w)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no readings for requested sensor")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch reading")
		}
		return c.JSON(reading)
	})

	r.Get("/watches/:location/:sensor/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		readings, err := service.GetRange(req.Watch, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no readings for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch reading history")
		}

		return c.JSON(fiber.Map{
			"watch":    req.Watch,
			"from":     req.From,
			"to":       req.To,
			"readings": readings,
		})
	})
}

func parseWatchParams(c *fiber.Ctx) (monitor.Watch, error) {
	return monitor.ParseWatch(c.Params("location") + ":" + c.Params("sensor"))
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Watch monitor.Watch
	From  time.Time `validate:"required"`
	To    time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	w, err := parseWatchParams(c)
	if err != nil {
		return err
	}
	h.Watch = w

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseDateValue accepts a date picker value (2006-01-02) or a full timestamp.
func parseDateValue(s string) (time.Time, error) {
	if d, err := daterange.ParseDate(s); err == nil {
		return d, nil
	}
	return common.ParseTimestamp(s)
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
