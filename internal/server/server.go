package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"toyadmin/internal/backend"
	"toyadmin/internal/config"
	"toyadmin/internal/invoice"
	"toyadmin/internal/middleware"
	"toyadmin/internal/models"
	"toyadmin/internal/orderlist"
	"toyadmin/internal/service"
)

type Server struct {
	svc      *service.OrderService
	validate *validator.Validate
	log      *zap.SugaredLogger
	user     string
	password string
	addr     string
}

func NewServer(svc *service.OrderService, cfg *config.Config, log *zap.SugaredLogger) *Server {
	return &Server{
		svc:      svc,
		validate: validator.New(),
		log:      log,
		user:     cfg.AuthUser,
		password: cfg.AuthPassword,
		addr:     cfg.RunAddress,
	}
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	s.handleWith(mux, "/orders", s.handleOrders,
		[]string{"GET"}, nil,
	)

	s.handleWith(mux, "/orders/", s.handleOrderOne,
		[]string{"GET", "POST", "PUT"},
		[]string{"POST", "PUT"},
	)

	s.handleWith(mux, "/dashboard", s.handleDashboard,
		[]string{"GET"}, nil,
	)

	s.handleWith(mux, "/cache/refresh", s.handleRefresh,
		[]string{"POST"}, []string{"POST"},
	)
}

func (s *Server) Run() error {
	mux := http.NewServeMux()

	s.RegisterRoutes(mux)

	s.log.Infow("server listening", "addr", s.addr)
	return http.ListenAndServe(s.addr, mux)
}

func (s *Server) handleWith(mux *http.ServeMux, path string,
	handlerFunc http.HandlerFunc,
	logMethods []string, authMethods []string,
) {
	finalHandler := middleware.LogMiddleware(s.log, logMethods...)(
		middleware.BasicAuthMiddleware(s.user, s.password, authMethods...)(
			handlerFunc,
		),
	)
	mux.Handle(path, finalHandler)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()

	tab := models.OrderStatus(q.Get("status"))
	if tab != "" && tab != orderlist.TabAll && !tab.IsValid() {
		http.Error(w, "unknown status tab", http.StatusBadRequest)
		return
	}
	criteria := orderlist.Criteria{
		Tab:     tab,
		OrderID: q.Get("order_id"),
		Month:   q.Get("month"),
		Year:    q.Get("year"),
	}

	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	res, err := s.svc.VisiblePage(r.Context(), criteria, page, pageSize)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleOrderOne(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/orders/")
	parts := strings.SplitN(rest, "/", 2)
	if parts[0] == "" {
		http.Error(w, "missing order ID", http.StatusBadRequest)
		return
	}
	orderID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		http.Error(w, "bad order ID", http.StatusBadRequest)
		return
	}
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "choices" && r.Method == http.MethodGet:
		s.handleChoices(w, r, orderID)
	case action == "status" && r.Method == http.MethodPut:
		s.handleUpdateStatus(w, r, orderID)
	case action == "confirm" && r.Method == http.MethodPost:
		s.handleConfirm(w, r, orderID)
	case action == "invoice" && r.Method == http.MethodGet:
		s.handleInvoice(w, r, orderID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func (s *Server) handleChoices(w http.ResponseWriter, r *http.Request, orderID int64) {
	res, err := s.svc.StatusChoices(r.Context(), orderID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type updateStatusRequest struct {
	Status string `json:"order_status" validate:"required"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request, orderID int64) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad JSON", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := s.svc.UpdateStatus(r.Context(), orderID, models.OrderStatus(req.Status), s.actor(r), r.URL.Path)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request, orderID int64) {
	if err := s.svc.ConfirmOrder(r.Context(), orderID, s.actor(r), r.URL.Path); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleInvoice(w http.ResponseWriter, r *http.Request, orderID int64) {
	data, err := s.svc.Invoice(r.Context(), orderID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	metrics, err := s.svc.Dashboard(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.svc.RefreshOrders(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) actor(r *http.Request) string {
	if user, _, ok := r.BasicAuth(); ok {
		return user
	}
	return "anonymous"
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, invoice.ErrNoItems):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, service.ErrUpdateInFlight):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, backend.ErrTimeout):
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
	default:
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}
