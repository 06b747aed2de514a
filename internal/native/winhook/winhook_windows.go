//go:build windows

package winhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/dshills/hookmap/internal/input"
	"github.com/dshills/hookmap/internal/input/hook"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procPeekMessageW        = user32.NewProc("PeekMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
	procSendInput           = user32.NewProc("SendInput")
)

const (
	whKeyboardLL = 13
	whMouseLL    = 14
	hcAction     = 0

	wmQuit        = 0x0012
	wmUser        = 0x0400
	wmKeyDown     = 0x0100
	wmKeyUp       = 0x0101
	wmSysKeyDown  = 0x0104
	wmSysKeyUp    = 0x0105
	wmMouseMove   = 0x0200
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmRButtonDown = 0x0204
	wmRButtonUp   = 0x0205
	wmMButtonDown = 0x0207
	wmMButtonUp   = 0x0208
	wmMouseWheel  = 0x020A
	wmXButtonDown = 0x020B
	wmXButtonUp   = 0x020C

	llkhfExtended = 0x01
	llkhfInjected = 0x10
	llmhfInjected = 0x01

	xButton1 = 0x0001
	xButton2 = 0x0002

	inputMouse    = 0
	inputKeyboard = 1

	keyeventfExtendedKey = 0x0001
	keyeventfKeyUp       = 0x0002

	mouseeventfMove       = 0x0001
	mouseeventfLeftDown   = 0x0002
	mouseeventfLeftUp     = 0x0004
	mouseeventfRightDown  = 0x0008
	mouseeventfRightUp    = 0x0010
	mouseeventfMiddleDown = 0x0020
	mouseeventfMiddleUp   = 0x0040
	mouseeventfXDown      = 0x0080
	mouseeventfXUp        = 0x0100
	mouseeventfWheel      = 0x0800
)

type point struct {
	X, Y int32
}

type kbdllhookstruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msllhookstruct struct {
	Pt          point
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
}

type mouseInput struct {
	Dx, Dy    int32
	MouseData uint32
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

type keybdInput struct {
	Vk, Scan  uint16
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
	_         [8]byte
}

type mouseINPUT struct {
	Type uint32
	Mi   mouseInput
}

type keybdINPUT struct {
	Type uint32
	Ki   keybdInput
}

// ErrAlreadyRunning is returned by Run when another Backend owns the hooks.
var ErrAlreadyRunning = errors.New("windows hook is already running")

// run is the state of the live hook. The hook procedures cannot carry
// context, so it lives in a package variable.
type run struct {
	cb      hook.Callback
	last    point
	seenPos bool
}

var (
	active    atomic.Pointer[run]
	callbacks sync.Once
	kbdProc   uintptr
	mouseProc uintptr
)

// Backend implements hook.Native and send.Injector with low-level hooks.
type Backend struct {
	logger *slog.Logger
}

// New creates a Windows hook backend.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{logger: logger}
}

// Run implements hook.Native. It must run on a locked OS thread, which
// hook.Install guarantees.
func (b *Backend) Run(ctx context.Context, cb hook.Callback, ready func()) error {
	if !active.CompareAndSwap(nil, &run{cb: cb}) {
		return ErrAlreadyRunning
	}
	defer active.Store(nil)

	callbacks.Do(func() {
		kbdProc = windows.NewCallback(keyboardProc)
		mouseProc = windows.NewCallback(mouseHookProc)
	})

	// Make sure the thread has a message queue before anyone posts to it.
	var m msg
	_, _, _ = procPeekMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, wmUser, wmUser, 0)

	kh, _, err := procSetWindowsHookExW.Call(whKeyboardLL, kbdProc, 0, 0)
	if kh == 0 {
		return fmt.Errorf("install keyboard hook: %w", err)
	}
	defer func() { _, _, _ = procUnhookWindowsHookEx.Call(kh) }()

	mh, _, err := procSetWindowsHookExW.Call(whMouseLL, mouseProc, 0, 0)
	if mh == 0 {
		return fmt.Errorf("install mouse hook: %w", err)
	}
	defer func() { _, _, _ = procUnhookWindowsHookEx.Call(mh) }()

	tid := windows.GetCurrentThreadId()
	stop := context.AfterFunc(ctx, func() {
		_, _, _ = procPostThreadMessageW.Call(uintptr(tid), wmQuit, 0, 0)
	})
	defer stop()

	b.logger.Info("[winhook] hooks installed", "thread", tid)
	ready()

	for {
		r, _, err := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		switch int32(r) {
		case 0:
			return nil
		case -1:
			return fmt.Errorf("GetMessageW: %w", err)
		}
	}
}

func keyboardProc(nCode, wParam, lParam uintptr) uintptr {
	if int32(nCode) == hcAction {
		if st := active.Load(); st != nil {
			k := (*kbdllhookstruct)(unsafe.Pointer(lParam))
			if ev, ok := keyEvent(k, wParam); ok && hook.Decide(st.cb, ev) == input.Block {
				return 1
			}
		}
	}
	r, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
	return r
}

func keyEvent(k *kbdllhookstruct, wParam uintptr) (input.Event, bool) {
	b, ok := buttonForVK(uint16(k.VkCode), k.Flags&llkhfExtended != 0)
	if !ok {
		return nil, false
	}
	ev := input.ButtonEvent{
		Target:   b,
		Injected: k.Flags&llkhfInjected != 0,
		Tag:      input.Tag(k.DwExtraInfo),
	}
	switch wParam {
	case wmKeyDown, wmSysKeyDown:
		ev.Action = input.Press
	case wmKeyUp, wmSysKeyUp:
		ev.Action = input.Release
	default:
		return nil, false
	}
	return ev, true
}

func mouseHookProc(nCode, wParam, lParam uintptr) uintptr {
	if int32(nCode) == hcAction {
		if st := active.Load(); st != nil {
			ms := (*msllhookstruct)(unsafe.Pointer(lParam))
			if ev, ok := st.mouseEvent(ms, wParam); ok {
				if hook.Decide(st.cb, ev) == input.Block {
					return 1
				}
				if wParam == wmMouseMove {
					st.last = ms.Pt
				}
			}
		}
	}
	r, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
	return r
}

// mouseEvent converts a mouse hook message. A blocked move leaves the
// cursor where it was, so the last position is only advanced by the
// caller once a move is dispatched.
func (st *run) mouseEvent(ms *msllhookstruct, wParam uintptr) (input.Event, bool) {
	injected := ms.Flags&llmhfInjected != 0
	tag := input.Tag(ms.DwExtraInfo)

	button := func(b input.Button, a input.Action) (input.Event, bool) {
		return input.ButtonEvent{Target: b, Action: a, Injected: injected, Tag: tag}, true
	}
	xButton := func() input.Button {
		if uint16(ms.MouseData>>16)&xButton2 != 0 {
			return input.SideButton2
		}
		return input.SideButton1
	}

	switch wParam {
	case wmMouseMove:
		if !st.seenPos {
			st.last, st.seenPos = ms.Pt, true
			return nil, false
		}
		dx, dy := ms.Pt.X-st.last.X, ms.Pt.Y-st.last.Y
		if dx == 0 && dy == 0 {
			return nil, false
		}
		return input.CursorEvent{DX: dx, DY: dy, Injected: injected, Tag: tag}, true
	case wmMouseWheel:
		return input.WheelEvent{Delta: wheelNotches(int16(ms.MouseData >> 16)), Injected: injected, Tag: tag}, true
	case wmLButtonDown:
		return button(input.LeftButton, input.Press)
	case wmLButtonUp:
		return button(input.LeftButton, input.Release)
	case wmRButtonDown:
		return button(input.RightButton, input.Press)
	case wmRButtonUp:
		return button(input.RightButton, input.Release)
	case wmMButtonDown:
		return button(input.MiddleButton, input.Press)
	case wmMButtonUp:
		return button(input.MiddleButton, input.Release)
	case wmXButtonDown:
		return button(xButton(), input.Press)
	case wmXButtonUp:
		return button(xButton(), input.Release)
	}
	return nil, false
}

// Inject implements send.Injector through SendInput. The event's tag is
// passed as dwExtraInfo so the hooks can recognise it.
func (b *Backend) Inject(ev input.Event) error {
	extra := uintptr(ev.SyntheticTag())

	switch e := ev.(type) {
	case input.ButtonEvent:
		if e.Target.Kind() == input.KindMouse {
			return sendMouse(mouseButtonInput(e, extra))
		}
		vk, ext, ok := vkForButton(e.Target)
		if !ok {
			return fmt.Errorf("no virtual-key code for %s", e.Target)
		}
		in := keybdINPUT{Type: inputKeyboard, Ki: keybdInput{Vk: vk, ExtraInfo: extra}}
		if ext {
			in.Ki.Flags |= keyeventfExtendedKey
		}
		if e.Action == input.Release {
			in.Ki.Flags |= keyeventfKeyUp
		}
		return sendInput(unsafe.Pointer(&in), unsafe.Sizeof(in))
	case input.CursorEvent:
		return sendMouse(mouseInput{Dx: e.DX, Dy: e.DY, Flags: mouseeventfMove, ExtraInfo: extra})
	case input.WheelEvent:
		return sendMouse(mouseInput{MouseData: uint32(e.Delta * wheelDelta), Flags: mouseeventfWheel, ExtraInfo: extra})
	}
	return fmt.Errorf("unsupported event %v", ev)
}

// Echoes implements send.Echoer.
func (b *Backend) Echoes() bool { return true }

func mouseButtonInput(e input.ButtonEvent, extra uintptr) mouseInput {
	mi := mouseInput{ExtraInfo: extra}
	press := e.Action == input.Press
	pick := func(down, up uint32) uint32 {
		if press {
			return down
		}
		return up
	}
	switch e.Target {
	case input.LeftButton:
		mi.Flags = pick(mouseeventfLeftDown, mouseeventfLeftUp)
	case input.RightButton:
		mi.Flags = pick(mouseeventfRightDown, mouseeventfRightUp)
	case input.MiddleButton:
		mi.Flags = pick(mouseeventfMiddleDown, mouseeventfMiddleUp)
	case input.SideButton1:
		mi.Flags = pick(mouseeventfXDown, mouseeventfXUp)
		mi.MouseData = xButton1
	case input.SideButton2:
		mi.Flags = pick(mouseeventfXDown, mouseeventfXUp)
		mi.MouseData = xButton2
	}
	return mi
}

func sendMouse(mi mouseInput) error {
	in := mouseINPUT{Type: inputMouse, Mi: mi}
	return sendInput(unsafe.Pointer(&in), unsafe.Sizeof(in))
}

func sendInput(in unsafe.Pointer, size uintptr) error {
	n, _, err := procSendInput.Call(1, uintptr(in), size)
	if n != 1 {
		return fmt.Errorf("SendInput: %w", err)
	}
	return nil
}
