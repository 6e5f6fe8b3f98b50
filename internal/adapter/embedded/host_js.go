//go:build js && wasm

package embedded

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"syscall/js"

	"speedrun-api/internal/domain"
)

// NewJSHost returns the Host backed by the runtime's global scope.
func NewJSHost() Host {
	return &jsHost{global: js.Global()}
}

type jsHost struct {
	global js.Value
}

func (h *jsHost) HasFetch() bool {
	return h.global.Get("fetch").Type() == js.TypeFunction
}

func (h *jsHost) NewHeaders() HeaderList {
	return &jsHeaders{v: h.global.Get("Headers").New()}
}

type jsHeaders struct {
	v js.Value
}

func (hs *jsHeaders) Append(name, value string) (err error) {
	defer recoverJS(&err)
	hs.v.Call("append", name, value)
	return nil
}

func (h *jsHost) Fetch(ctx context.Context, req *FetchRequest) (*FetchResponse, error) {
	init := map[string]any{"method": req.Method}
	if hs, ok := req.Headers.(*jsHeaders); ok {
		init["headers"] = hs.v
	}
	if len(req.Body) > 0 {
		// syscall/js exposes no view of Go memory, and one would detach when wasm memory grows.
		arr := h.global.Get("Uint8Array").New(len(req.Body))
		js.CopyBytesToJS(arr, req.Body)
		init["body"] = arr
	}

	if ac := h.global.Get("AbortController"); ac.Type() == js.TypeFunction {
		ctrl := ac.New()
		init["signal"] = ctrl.Get("signal")
		stop := context.AfterFunc(ctx, func() { ctrl.Call("abort") })
		defer stop()
	}

	respV, err := await(h.global.Call("fetch", req.URL, init))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	bufV, err := await(respV.Call("arrayBuffer"))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	u8 := h.global.Get("Uint8Array").New(bufV)
	body := make([]byte, u8.Get("length").Int())
	js.CopyBytesToGo(body, u8)

	header := make(http.Header)
	each := js.FuncOf(func(_ js.Value, args []js.Value) any {
		header.Add(args[1].String(), args[0].String())
		return nil
	})
	respV.Get("headers").Call("forEach", each)
	each.Release()

	return &FetchResponse{Status: respV.Get("status").Int(), Header: header, Body: body}, nil
}

func (h *jsHost) NewSocket(url string) (s Socket, err error) {
	defer recoverJS(&err)
	v := h.global.Get("WebSocket").New(url)
	v.Set("binaryType", "arraybuffer")
	return &jsSocket{v: v, global: h.global}, nil
}

type jsSocket struct {
	v      js.Value
	global js.Value

	mu    sync.Mutex
	funcs []js.Func
}

func (s *jsSocket) SetHandlers(hd Handlers) {
	s.mu.Lock()
	defer s.mu.Unlock()

	onOpen := js.FuncOf(func(js.Value, []js.Value) any {
		hd.OnOpen()
		return nil
	})
	onMessage := js.FuncOf(func(_ js.Value, args []js.Value) any {
		data := args[0].Get("data")
		if data.Type() == js.TypeString {
			hd.OnMessage(domain.TextMessage(data.String()))
			return nil
		}
		u8 := s.global.Get("Uint8Array").New(data)
		p := make([]byte, u8.Get("length").Int())
		js.CopyBytesToGo(p, u8)
		hd.OnMessage(domain.BinaryMessage(p))
		return nil
	})
	onClose := js.FuncOf(func(_ js.Value, args []js.Value) any {
		ev := args[0]
		hd.OnClose(ev.Get("code").Int(), ev.Get("reason").String())
		return nil
	})
	onError := js.FuncOf(func(js.Value, []js.Value) any {
		hd.OnError(errors.New("websocket error event"))
		return nil
	})

	s.v.Set("onopen", onOpen)
	s.v.Set("onmessage", onMessage)
	s.v.Set("onclose", onClose)
	s.v.Set("onerror", onError)
	s.funcs = append(s.funcs, onOpen, onMessage, onClose, onError)
}

func (s *jsSocket) ClearHandlers() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range []string{"onopen", "onmessage", "onclose", "onerror"} {
		s.v.Set(name, js.Null())
	}
	for _, f := range s.funcs {
		f.Release()
	}
	s.funcs = nil
}

func (s *jsSocket) SendText(text string) (err error) {
	defer recoverJS(&err)
	s.v.Call("send", text)
	return nil
}

func (s *jsSocket) Close() (err error) {
	defer recoverJS(&err)
	s.v.Call("close")
	return nil
}

// await blocks the calling goroutine until the promise settles. It must not
// be called from inside a js.Func callback.
func await(p js.Value) (js.Value, error) {
	done := make(chan js.Value, 1)
	failed := make(chan error, 1)

	then := js.FuncOf(func(_ js.Value, args []js.Value) any {
		done <- args[0]
		return nil
	})
	defer then.Release()
	catch := js.FuncOf(func(_ js.Value, args []js.Value) any {
		failed <- jsError(args[0])
		return nil
	})
	defer catch.Release()

	p.Call("then", then, catch)

	select {
	case v := <-done:
		return v, nil
	case err := <-failed:
		return js.Value{}, err
	}
}

func jsError(v js.Value) error {
	if v.Type() == js.TypeObject && v.Get("message").Type() == js.TypeString {
		return errors.New(v.Get("message").String())
	}
	return errors.New(v.String())
}

// recoverJS turns a thrown JavaScript exception into an error.
func recoverJS(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if jerr, ok := r.(js.Error); ok {
		*err = jerr
		return
	}
	panic(r)
}
