// Package eventbus dispatches domain events to handlers by argument type.
package eventbus

import (
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
)

type EventBus interface {
	Publish(args ...any)
	Subscribe(handler any)
	Unsubscribe(handler any)
	SubscribersCount() int
}

type publisherImpl struct {
	log      *logrus.Logger
	mu       sync.RWMutex
	handlers []reflect.Value
}

func NewEventPublisher(log *logrus.Logger) EventBus {
	return &publisherImpl{log: log}
}

// MatchSignature reports whether handler can be called with args.
func MatchSignature(handler any, args []any) bool {
	t := reflect.TypeOf(handler)
	if t == nil || t.Kind() != reflect.Func || t.NumIn() != len(args) {
		return false
	}
	for i, arg := range args {
		param := t.In(i)
		if arg == nil {
			k := param.Kind()
			if k != reflect.Interface && k != reflect.Ptr {
				return false
			}
			continue
		}
		if !reflect.TypeOf(arg).AssignableTo(param) {
			return false
		}
	}
	return true
}

// Publish calls every matching handler synchronously. A panicking handler is
// logged and does not stop the others.
func (p *publisherImpl) Publish(args ...any) {
	p.mu.RLock()
	handlers := make([]reflect.Value, len(p.handlers))
	copy(handlers, p.handlers)
	p.mu.RUnlock()

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Value{}
			continue
		}
		in[i] = reflect.ValueOf(arg)
	}

	matched := 0
	for _, h := range handlers {
		if !MatchSignature(h.Interface(), args) {
			continue
		}
		matched++
		p.call(h, in)
	}
	if matched == 0 && p.log != nil {
		p.log.Debugf("eventbus.Publish: no matching subscribers for %d args", len(args))
	}
}

func (p *publisherImpl) call(h reflect.Value, in []reflect.Value) {
	defer func() {
		if r := recover(); r != nil && p.log != nil {
			p.log.Errorf("eventbus: handler %s panicked: %v", h.Type().String(), r)
		}
	}()
	callArgs := make([]reflect.Value, len(in))
	for i, v := range in {
		if !v.IsValid() {
			v = reflect.Zero(h.Type().In(i))
		}
		callArgs[i] = v
	}
	h.Call(callArgs)
}

func (p *publisherImpl) Subscribe(handler any) {
	v := reflect.ValueOf(handler)
	if v.Kind() != reflect.Func {
		panic("handler must be a function")
	}
	p.mu.Lock()
	p.handlers = append(p.handlers, v)
	p.mu.Unlock()
}

func (p *publisherImpl) Unsubscribe(handler any) {
	target := reflect.ValueOf(handler).Pointer()
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, h := range p.handlers {
		if h.Pointer() == target {
			p.handlers = append(p.handlers[:i], p.handlers[i+1:]...)
			return
		}
	}
}

func (p *publisherImpl) SubscribersCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.handlers)
}
