//go:build windows

package lifecycle

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	wmDestroy   = 0x0002
	wmNCDestroy = 0x0082
	pmRemove    = 0x0001
)

type msg struct {
	Hwnd    windows.HWND
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procPeekMessageW     = user32.NewProc("PeekMessageW")
	procTranslateMessage = user32.NewProc("TranslateMessage")
	procDispatchMessageW = user32.NewProc("DispatchMessageW")
	procDestroyWindow    = user32.NewProc("DestroyWindow")
	procIsWindow         = user32.NewProc("IsWindow")
)

// WindowsPump implements Pump by scoping PeekMessage to exactly the
// closing window's HWND, never the thread's whole queue — pumping all
// messages would steal input from the host's own loop.
type WindowsPump struct{}

func (WindowsPump) PumpOnce(handle uintptr) (destroyObserved bool, empty bool) {
	var m msg
	hwnd := windows.HWND(handle)

	ret, _, _ := procPeekMessageW.Call(
		uintptr(unsafe.Pointer(&m)), uintptr(hwnd), 0, 0, pmRemove)
	if ret == 0 {
		return false, true
	}

	if m.Message == wmNCDestroy {
		destroyObserved = true
	}
	procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
	procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	return destroyObserved, false
}

// WindowsDestroyer issues DestroyWindow via user32.
type WindowsDestroyer struct{}

func (WindowsDestroyer) DestroyWindow(handle uintptr) error {
	ret, _, err := procDestroyWindow.Call(handle)
	if ret == 0 {
		return err
	}
	return nil
}

// IsWindow reports whether handle still refers to a live window.
func IsWindow(handle uintptr) bool {
	ret, _, _ := procIsWindow.Call(handle)
	return ret != 0
}

// DefaultPump returns the platform's Pump implementation.
func DefaultPump() Pump { return WindowsPump{} }
