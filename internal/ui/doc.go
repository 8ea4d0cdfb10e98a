// Package ui provides the single-goroutine UI context the conversion trigger
// reports back to.
//
// Loop is a task queue drained by exactly one goroutine; every control
// mutation happens on that goroutine. Button is the control the trigger
// drives, and Layout is the hook a host screen implements to receive it.
package ui
