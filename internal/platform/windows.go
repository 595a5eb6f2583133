//go:build windows

package platform

import (
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/e-grid/e-grid/internal/domain/geometry"
	"github.com/e-grid/e-grid/internal/domain/tracker"
	"github.com/e-grid/e-grid/internal/queue"
	"golang.org/x/sys/windows"
)

// Win32 procs, resolved lazily the way winsnap resolves user32/EnumWindows:
// golang.org/x/sys/windows does not wrap every user32 entry point we need,
// so the remainder come from NewLazySystemDLL the same way.
var (
	dwmapi               = windows.NewLazySystemDLL("dwmapi.dll")
	procDwmGetWindowAttr = dwmapi.NewProc("DwmGetWindowAttribute")

	user32               = windows.NewLazySystemDLL("user32.dll")
	procEnumWindows      = user32.NewProc("EnumWindows")
	procGetWindowRect    = user32.NewProc("GetWindowRect")
	procIsWindowVisible  = user32.NewProc("IsWindowVisible")
	procIsIconic         = user32.NewProc("IsIconic")
	procGetWindowTextW   = user32.NewProc("GetWindowTextW")
	procGetClassNameW    = user32.NewProc("GetClassNameW")
	procGetWindowThread  = user32.NewProc("GetWindowThreadProcessId")
	procGetWindowLongW   = user32.NewProc("GetWindowLongW")
	procGetAncestor      = user32.NewProc("GetAncestor")
	procSetWindowPos     = user32.NewProc("SetWindowPos")
	procSetForegroundWnd = user32.NewProc("SetForegroundWindow")
	procSetWinEventHook  = user32.NewProc("SetWinEventHook")
	procUnhookWinEvent   = user32.NewProc("UnhookWinEvent")
	procGetMessageW      = user32.NewProc("GetMessageW")
	procTranslateMessage = user32.NewProc("TranslateMessage")
	procDispatchMessageW = user32.NewProc("DispatchMessageW")
	procPostThreadMsgW   = user32.NewProc("PostThreadMessageW")
	procEnumDisplayMons  = user32.NewProc("EnumDisplayMonitors")
	procGetMonitorInfoW  = user32.NewProc("GetMonitorInfoW")
)

const (
	gwlExStyle      = -20
	wsExToolWindow  = 0x00000080
	wsExAppWindow   = 0x00040000
	gaRoot          = 2
	swpNoZOrder     = 0x0004
	swpNoActivate   = 0x0010
	wmQuit          = 0x0012

	dwmwaCloaked = 14

	eventObjectCreate         = 0x8000
	eventObjectDestroy        = 0x8001
	eventObjectLocationChange = 0x800B
	eventSystemForeground     = 0x0003
	eventSystemMoveSizeStart  = 0x000A
	eventSystemMoveSizeEnd    = 0x000B
	eventSystemMinimizeStart  = 0x0016
	eventSystemMinimizeEnd    = 0x0017
	objidWindow               = 0

	wineventOutOfContext = 0x0000
	wineventSkipOwnThread = 0x0001
)

type win32Rect struct {
	Left, Top, Right, Bottom int32
}

func (r win32Rect) toGeometry() geometry.Rect {
	return geometry.Rect{Left: int(r.Left), Top: int(r.Top), Right: int(r.Right), Bottom: int(r.Bottom)}
}

type win32Msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

type monitorInfo struct {
	Size     uint32
	Monitor  win32Rect
	WorkArea win32Rect
	Flags    uint32
}

func getWindowRect(hwnd uintptr) (geometry.Rect, bool) {
	var r win32Rect

	ret, _, _ := procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&r)))

	return r.toGeometry(), ret != 0
}

func isWindowVisible(hwnd uintptr) bool {
	ret, _, _ := procIsWindowVisible.Call(hwnd)

	return ret != 0
}

func isIconic(hwnd uintptr) bool {
	ret, _, _ := procIsIconic.Call(hwnd)

	return ret != 0
}

func getExStyle(hwnd uintptr) uint32 {
	ret, _, _ := procGetWindowLongW.Call(hwnd, uintptr(gwlExStyle))

	return uint32(ret)
}

func isToolWindow(hwnd uintptr) bool {
	return getExStyle(hwnd)&wsExToolWindow != 0
}

// isCloaked reports whether hwnd is DWM-cloaked (e.g. a UWP window parked on
// an inactive virtual desktop, or an otherwise hidden child of a visible
// window). A failed DwmGetWindowAttribute call is treated as not cloaked.
func isCloaked(hwnd uintptr) bool {
	var cloaked uint32

	ret, _, _ := procDwmGetWindowAttr.Call(
		hwnd, uintptr(dwmwaCloaked), uintptr(unsafe.Pointer(&cloaked)), unsafe.Sizeof(cloaked),
	)

	return ret == 0 && cloaked != 0
}

func isTopLevel(hwnd uintptr) bool {
	root, _, _ := procGetAncestor.Call(hwnd, uintptr(gaRoot))

	return root == hwnd
}

func getWindowText(hwnd uintptr) string {
	buf := make([]uint16, 256)

	n, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}

	return syscall.UTF16ToString(buf[:n])
}

func getClassName(hwnd uintptr) string {
	buf := make([]uint16, 256)

	n, _, _ := procGetClassNameW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}

	return syscall.UTF16ToString(buf[:n])
}

func getWindowProcessID(hwnd uintptr) uint32 {
	var pid uint32

	procGetWindowThread.Call(hwnd, uintptr(unsafe.Pointer(&pid)))

	return pid
}

// Client is the real Windows WindowSystem.
type Client struct {
	mu      sync.Mutex
	stopped chan struct{}
	tid     uint32
	hooks   []uintptr
}

// New returns the real Windows WindowSystem.
func New() (WindowSystem, error) {
	return &Client{stopped: make(chan struct{})}, nil
}

var enumMu sync.Mutex

var (
	enumWindowsCBOnce sync.Once
	enumWindowsCB     uintptr
	enumCollected     []Snapshot
)

func enumWindowsProc(hwnd uintptr, _ uintptr) uintptr {
	if !isWindowVisible(hwnd) {
		return 1
	}
	if !isTopLevel(hwnd) {
		return 1
	}

	r, ok := getWindowRect(hwnd)
	if !ok {
		return 1
	}

	enumCollected = append(enumCollected, Snapshot{
		Handle:    uint64(hwnd),
		ProcessID: getWindowProcessID(hwnd),
		Rect:      r,
		Title:     getWindowText(hwnd),
		Attrs: tracker.OSAttributes{
			IsTopLevel:  true,
			IsVisible:   true,
			IsCloaked:   isCloaked(hwnd),
			IsToolWindow: isToolWindow(hwnd),
			ClassName:   getClassName(hwnd),
			X:           r.Left,
			Y:           r.Top,
			MinimizedX:  r.Left,
			MinimizedY:  r.Top,
		},
	})

	return 1
}

// EnumerateWindows performs a full top-level window discovery scan.
func (c *Client) EnumerateWindows() ([]Snapshot, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumWindowsCBOnce.Do(func() {
		enumWindowsCB = syscall.NewCallback(enumWindowsProc)
	})

	enumCollected = nil
	procEnumWindows.Call(enumWindowsCB, 0)

	out := enumCollected
	enumCollected = nil

	return out, nil
}

var (
	enumMonitorsCBOnce sync.Once
	enumMonitorsCB     uintptr
	monitorsCollected  []Monitor
	monitorSeq         int
)

func enumMonitorsProc(hMonitor uintptr, _ uintptr, _ uintptr, _ uintptr) uintptr {
	var info monitorInfo
	info.Size = uint32(unsafe.Sizeof(info))

	ret, _, _ := procGetMonitorInfoW.Call(hMonitor, uintptr(unsafe.Pointer(&info)))
	if ret == 0 {
		return 1
	}

	monitorsCollected = append(monitorsCollected, Monitor{
		ID:       monitorSeq,
		Bounds:   info.Monitor.toGeometry(),
		WorkArea: info.WorkArea.toGeometry(),
	})
	monitorSeq++

	return 1
}

// Snapshot queries a single window by handle via GetWindowRect, avoiding a
// full EnumWindows pass.
func (c *Client) Snapshot(handle uint64) (Snapshot, bool) {
	hwnd := uintptr(handle)

	if !isWindowVisible(hwnd) {
		return Snapshot{}, false
	}

	r, ok := getWindowRect(hwnd)
	if !ok {
		return Snapshot{}, false
	}

	return Snapshot{
		Handle:    handle,
		ProcessID: getWindowProcessID(hwnd),
		Rect:      r,
		Title:     getWindowText(hwnd),
		Attrs: tracker.OSAttributes{
			IsTopLevel:   isTopLevel(hwnd),
			IsVisible:    true,
			IsCloaked:    isCloaked(hwnd),
			IsToolWindow: isToolWindow(hwnd),
			ClassName:    getClassName(hwnd),
			X:            r.Left,
			Y:            r.Top,
			MinimizedX:   r.Left,
			MinimizedY:   r.Top,
		},
	}, true
}

// Monitors enumerates the current physical displays.
func (c *Client) Monitors() ([]Monitor, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumMonitorsCBOnce.Do(func() {
		enumMonitorsCB = syscall.NewCallback(enumMonitorsProc)
	})

	monitorsCollected = nil
	monitorSeq = 0
	procEnumDisplayMons.Call(0, 0, enumMonitorsCB, 0)

	out := monitorsCollected
	monitorsCollected = nil

	return out, nil
}

// Reposition moves and resizes handle to rect via SetWindowPos.
func (c *Client) Reposition(handle uint64, rect geometry.Rect) error {
	ret, _, err := procSetWindowPos.Call(
		uintptr(handle),
		0,
		uintptr(rect.Left),
		uintptr(rect.Top),
		uintptr(rect.Width()),
		uintptr(rect.Height()),
		uintptr(swpNoZOrder|swpNoActivate),
	)
	if ret == 0 {
		return err
	}

	return nil
}

// Focus brings handle to the foreground via SetForegroundWindow.
func (c *Client) Focus(handle uint64) error {
	ret, _, err := procSetForegroundWnd.Call(uintptr(handle))
	if ret == 0 {
		return err
	}

	return nil
}

// dispatchMu guards the single active Client's sink registration; only one
// Run loop may be active per process, matching the teacher's followerMap
// thread-keyed dispatch pattern collapsed to a single hook owner.
var (
	dispatchMu   sync.Mutex
	activeSink   func(queue.RawEvent)
	hookCBOnce   sync.Once
	hookCB       uintptr
)

func winEventShim(_ uintptr, event uint32, hwnd uintptr, idObject, idChild int32, _, eventTime uint32) uintptr {
	if idObject != objidWindow || idChild != 0 {
		return 0
	}

	dispatchMu.Lock()
	sink := activeSink
	dispatchMu.Unlock()

	if sink == nil {
		return 0
	}

	var kind queue.Kind

	switch event {
	case eventObjectCreate:
		kind = queue.Create
	case eventObjectDestroy:
		kind = queue.Destroy
	case eventObjectLocationChange:
		kind = queue.LocationChange
	case eventSystemForeground:
		kind = queue.Foreground
	case eventSystemMoveSizeStart:
		kind = queue.MoveStart
	case eventSystemMoveSizeEnd:
		kind = queue.MoveStop
	case eventSystemMinimizeStart:
		kind = queue.Minimize
	case eventSystemMinimizeEnd:
		kind = queue.Restore
	default:
		return 0
	}

	sink(queue.RawEvent{Kind: kind, Handle: uint64(hwnd), Timestamp: time.Now()})

	return 0
}

// Run installs the WinEvent hooks for the full event set and pumps the
// thread's message queue until Stop is called. It must run on a locked OS
// thread, since SetWinEventHook/GetMessageW are thread-affine.
func (c *Client) Run(sink func(queue.RawEvent)) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	dispatchMu.Lock()
	activeSink = sink
	dispatchMu.Unlock()

	hookCBOnce.Do(func() {
		hookCB = syscall.NewCallback(winEventShim)
	})

	events := [][2]uint32{
		{eventObjectCreate, eventObjectCreate},
		{eventObjectDestroy, eventObjectDestroy},
		{eventObjectLocationChange, eventObjectLocationChange},
		{eventSystemForeground, eventSystemForeground},
		{eventSystemMoveSizeStart, eventSystemMoveSizeEnd},
		{eventSystemMinimizeStart, eventSystemMinimizeEnd},
	}

	c.mu.Lock()
	c.tid = getCurrentThreadID()

	for _, pair := range events {
		h, _, _ := procSetWinEventHook.Call(
			uintptr(pair[0]),
			uintptr(pair[1]),
			0,
			hookCB,
			0,
			0,
			uintptr(wineventOutOfContext|wineventSkipOwnThread),
		)
		if h != 0 {
			c.hooks = append(c.hooks, h)
		}
	}
	c.mu.Unlock()

	var msg win32Msg

	for {
		ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)

		switch int32(ret) {
		case -1, 0:
			return nil
		default:
			procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
			procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
		}
	}
}

// Stop unhooks every WinEvent hook and posts WM_QUIT to unblock Run's
// message pump.
func (c *Client) Stop() {
	c.mu.Lock()
	hooks := c.hooks
	tid := c.tid
	c.hooks = nil
	c.mu.Unlock()

	for _, h := range hooks {
		procUnhookWinEvent.Call(h)
	}

	if tid != 0 {
		procPostThreadMsgW.Call(uintptr(tid), wmQuit, 0, 0)
	}
}

func getCurrentThreadID() uint32 {
	return windows.GetCurrentThreadId()
}

var _ WindowSystem = (*Client)(nil)
