package controllers

import (
	"net/http"

	"github.com/denizkaplan/lunera-backend/api/responses"
	"github.com/denizkaplan/lunera-backend/api/validators"
	"github.com/denizkaplan/lunera-backend/internal/orders"
	"github.com/denizkaplan/lunera-backend/pkg/enums"
	pkgerrors "github.com/denizkaplan/lunera-backend/pkg/errors"
	"github.com/denizkaplan/lunera-backend/pkg/logger"
)

type adminStatusRequest struct {
	Status         string  `json:"status" validate:"required"`
	TrackingNumber *string `json:"tracking_number" validate:"omitempty,max=100"`
	TrackingURL    *string `json:"tracking_url" validate:"omitempty,url"`
}

// AdminOrderDetail returns any order by id for back-office staff.
func AdminOrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.FindByID(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdminUpdateOrderStatus applies a back-office status transition.
func AdminUpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req adminStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown target status"))
			return
		}

		actorID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AdminUpdateStatus(r.Context(), orders.AdminStatusInput{
			OrderID:        orderID,
			TargetStatus:   target,
			TrackingNumber: req.TrackingNumber,
			TrackingURL:    req.TrackingURL,
			ActorID:        actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
