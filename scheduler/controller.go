package scheduler

// Controller is a unit of execution driven by the Scheduler.
//
// Run is called once, on its own goroutine. It must return the error of any
// failed suspension primitive as soon as it sees it. Returning nil records a
// successful termination; any other error is recorded as the controller's
// failure and does not affect other controllers.
type Controller interface {
	Name() string
	Run(ctx *Context) error
}

type funcController struct {
	name string
	fn   func(ctx *Context) error
}

// Func adapts a function to a Controller.
func Func(name string, fn func(ctx *Context) error) Controller {
	return &funcController{name: name, fn: fn}
}

func (fc *funcController) Name() string {
	return fc.name
}

func (fc *funcController) Run(ctx *Context) error {
	return fc.fn(ctx)
}
