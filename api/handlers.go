package api

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"todo-web/domain"
)

// Register wires up all routes on the provided Echo instance. feed may be
// nil when no change feed is configured.
func Register(e *echo.Echo, store Storage, feed *ChangeFeed, logger *log.Logger) {
	e.Renderer = NewTemplates()

	e.GET("/", showList(store, feed, logger, "/", func(echo.Context) string { return domain.DefaultListName }))
	e.POST("/", addItem(store, feed, logger))
	e.POST("/delete", deleteItem(store, feed, logger))
	e.GET("/about", about)
	e.GET("/healthz", healthz(store))
	e.GET("/favicon.ico", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.StaticFS("/public", staticFS())
	e.GET("/:customListName", showList(store, feed, logger, "/:customListName", customListParam))
}

func about(c echo.Context) error {
	return c.Render(http.StatusOK, "about", nil)
}

func healthz(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.Ping(c.Request().Context()); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusServiceUnavailable, "store unavailable")
		}
		return c.String(http.StatusOK, "ok")
	}
}

func customListParam(c echo.Context) string {
	raw := c.Param("customListName")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

// observed runs h inside a request span and logs the outcome.
func observed(logger *log.Logger, route string, h func(echo.Context, *requestMetrics) error) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		metrics, spanCtx := newRequestMetrics(c.Request().Context(), logger, route)
		c.SetRequest(c.Request().WithContext(spanCtx))
		defer func() {
			metrics.Log(statusFor(c, err), err)
		}()
		return h(c, metrics)
	}
}

func showList(store Storage, feed *ChangeFeed, logger *log.Logger, route string, listName func(echo.Context) string) echo.HandlerFunc {
	return observed(logger, route, func(c echo.Context, metrics *requestMetrics) error {
		ctx := c.Request().Context()
		list := resolveList(store, listName(c))
		metrics.SetList(list.Title())

		storeStart := time.Now()
		items, created, err := list.Open(ctx)
		metrics.ObserveStore(time.Since(storeStart))
		if err != nil {
			metrics.SetErrorStage("store")
			return storeFailure(logger, "show", list.Title(), err)
		}
		if created {
			metrics.SetOutcome("created")
			if !list.IsDefault() {
				feed.Publish(domain.NewChange(domain.ChangeListCreated, list.Title(), domain.Item{}))
			}
			return c.Redirect(http.StatusSeeOther, list.Path())
		}

		metrics.SetOutcome("render")
		metrics.SetItemsReturned(len(items))
		renderStart := time.Now()
		err = c.Render(http.StatusOK, "index", listPage{Title: list.Title(), Items: items})
		metrics.ObserveRender(time.Since(renderStart))
		if err != nil {
			metrics.SetErrorStage("render")
		}
		return err
	})
}

func addItem(store Storage, feed *ChangeFeed, logger *log.Logger) echo.HandlerFunc {
	return observed(logger, "/", func(c echo.Context, metrics *requestMetrics) error {
		ctx := c.Request().Context()
		itemName := c.FormValue("newItem")
		list := resolveList(store, c.FormValue("typeOfList"))
		metrics.SetList(list.Title())

		storeStart := time.Now()
		item, err := list.Add(ctx, itemName)
		metrics.ObserveStore(time.Since(storeStart))
		if errors.Is(err, domain.ErrListNotFound) {
			metrics.SetErrorStage("list_not_found")
			logger.WithField("list", list.Title()).Warn("add item: list not found")
			return echo.NewHTTPError(http.StatusNotFound, "list not found")
		}
		if err != nil {
			metrics.SetErrorStage("store")
			return storeFailure(logger, "add", list.Title(), err)
		}

		feed.Publish(domain.NewChange(domain.ChangeItemAdded, list.Title(), item))
		metrics.SetOutcome("redirect")
		return c.Redirect(http.StatusSeeOther, list.Path())
	})
}

func deleteItem(store Storage, feed *ChangeFeed, logger *log.Logger) echo.HandlerFunc {
	return observed(logger, "/delete", func(c echo.Context, metrics *requestMetrics) error {
		ctx := c.Request().Context()
		itemID := c.FormValue("checkbox")
		list := resolveList(store, c.FormValue("listName"))
		metrics.SetList(list.Title())

		storeStart := time.Now()
		err := list.Remove(ctx, itemID)
		metrics.ObserveStore(time.Since(storeStart))
		if err != nil {
			metrics.SetErrorStage("store")
			return storeFailure(logger, "delete", list.Title(), err)
		}

		feed.Publish(domain.NewChange(domain.ChangeItemDeleted, list.Title(), domain.Item{ID: itemID}))
		metrics.SetOutcome("redirect")
		return c.Redirect(http.StatusSeeOther, list.Path())
	})
}

// storeFailure logs err and hides its details from the client.
func storeFailure(logger *log.Logger, op, list string, err error) error {
	logger.WithFields(log.Fields{
		"op":    op,
		"list":  list,
		"error": err.Error(),
	}).Error("store operation failed")
	return echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
}
