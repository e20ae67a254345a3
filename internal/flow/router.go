package flow

// Routes the flows navigate to
const (
	RouteBills   = "#employee/bills"
	RouteNewBill = "#employee/bill/new"
)

// Router moves the user to another page
type Router interface {
	Navigate(route string)
}

// RouterFunc adapts a function to Router
type RouterFunc func(route string)

// Navigate calls f(route)
func (f RouterFunc) Navigate(route string) {
	f(route)
}
