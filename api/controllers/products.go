package controllers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/orderdesk-backend/api/responses"
	"github.com/angelmondragon/orderdesk-backend/api/validators"
	"github.com/angelmondragon/orderdesk-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/orderdesk-backend/pkg/errors"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
)

const (
	searchTermMaxLen = 120
	maxPageParam     = 10000
)

// ProductsList applies the optional search term and page, then renders the
// product view.
func ProductsList(svc Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := lookupWorkspace(w, r, svc, logg)
		if !ok {
			return
		}

		page, err := validators.ParseQueryInt(r, "page", 0, 1, maxPageParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		term, hasTerm, err := validators.ParseQueryString(r, "q", searchTermMaxLen)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if hasTerm {
			ws.Catalog.ApplyFilters(term)
		}
		if page > 0 {
			ws.Catalog.GoToPage(page)
		}

		responses.WriteSuccess(w, ws.Catalog.Snapshot())
	}
}

func ProductsReload(svc Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := lookupWorkspace(w, r, svc, logg)
		if !ok {
			return
		}
		err := ws.Catalog.LoadProducts(r.Context())
		writeViewResult(w, r, logg, ws, ws.Catalog.Snapshot(), err)
	}
}

func ProductsNextPage(svc Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := lookupWorkspace(w, r, svc, logg)
		if !ok {
			return
		}
		ws.Catalog.NextPage()
		responses.WriteSuccess(w, ws.Catalog.Snapshot())
	}
}

func ProductsPrevPage(svc Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := lookupWorkspace(w, r, svc, logg)
		if !ok {
			return
		}
		ws.Catalog.PrevPage()
		responses.WriteSuccess(w, ws.Catalog.Snapshot())
	}
}

type addProductResponse struct {
	Product  catalog.Row      `json:"product"`
	Products catalog.Snapshot `json:"products"`
}

// ProductAdd adds the row identified by {productKey} to the order.
func ProductAdd(svc Workspaces, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, ok := lookupWorkspace(w, r, svc, logg)
		if !ok {
			return
		}

		key, err := url.PathUnescape(chi.URLParam(r, "productKey"))
		if err != nil || strings.TrimSpace(key) == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product key"))
			return
		}

		row, err := ws.Catalog.AddProduct(r.Context(), key)
		writeViewResult(w, r, logg, ws, addProductResponse{Product: row, Products: ws.Catalog.Snapshot()}, err)
	}
}
