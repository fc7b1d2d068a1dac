// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cor

import (
	"context"
	"errors"
	"log/slog"
	"os"
)

// BaseContext is the default, single goroutine Context implementation.
type BaseContext struct {
	data      map[string]any
	errors    map[string]error
	errOrder  []string
	tempPaths []string
	context   context.Context
}

func NewBaseContext() Context {
	return &BaseContext{
		data:   make(map[string]any),
		errors: make(map[string]error),
	}
}

// NewContextWith creates a Context bound to ctx with CtxIn set to in.
func NewContextWith(ctx context.Context, in any) Context {
	c := NewBaseContext()
	c.SetContext(ctx)
	if in != nil {
		c.Add(CtxIn, in)
	}
	return c
}

// Value reads key from the context as a T.
func Value[T any](c Context, key string) (T, bool) {
	v, ok := c.Get(key).(T)
	return v, ok
}

func (c *BaseContext) SetContext(ctx context.Context) {
	c.context = ctx
}

func (c *BaseContext) GetContext() context.Context {
	return c.context
}

// Close removes temp paths in reverse order of registration.
func (c *BaseContext) Close() {
	for i := len(c.tempPaths) - 1; i >= 0; i-- {
		if err := os.RemoveAll(c.tempPaths[i]); err != nil {
			slog.Warn("failed to remove temporary path", "path", c.tempPaths[i], "error", err)
		}
	}
	c.tempPaths = nil
}

func (c *BaseContext) Add(key string, value any) Context {
	c.data[key] = value
	return c
}

func (c *BaseContext) Get(key string) any {
	return c.data[key]
}

func (c *BaseContext) Remove(key string) {
	delete(c.data, key)
}

func (c *BaseContext) AddTempPath(path string) {
	c.tempPaths = append(c.tempPaths, path)
}

func (c *BaseContext) GetTempPaths() []string {
	return c.tempPaths
}

func (c *BaseContext) AddError(key string, err error) {
	if _, seen := c.errors[key]; !seen {
		c.errOrder = append(c.errOrder, key)
	}
	c.errors[key] = err
}

func (c *BaseContext) GetErrors() map[string]error {
	return c.errors
}

func (c *BaseContext) HasErrors() bool {
	return len(c.errors) > 0
}

func (c *BaseContext) Err() error {
	errs := make([]error, 0, len(c.errOrder))
	for _, k := range c.errOrder {
		errs = append(errs, c.errors[k])
	}
	return errors.Join(errs...)
}
