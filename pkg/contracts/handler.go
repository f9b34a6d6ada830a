package contracts

import "github.com/julienschmidt/httprouter"

// Handler is anything that can mount its routes on a router
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}
