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
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotExecutable is recorded when a command's precondition fails.
type ErrNotExecutable struct {
	Command string
}

func (e *ErrNotExecutable) Error() string {
	return fmt.Sprintf("command %s is not executable with the current context", e.Command)
}

// BaseChain runs commands in order and pipes CtxOut into CtxIn.
type BaseChain struct {
	BaseCommand
	continueOnFailure bool
	commands          []Command
}

func NewBaseChain(name string) *BaseChain {
	return &BaseChain{BaseCommand: *NewBaseCommand(name)}
}

func (c *BaseChain) ContinueOnFailure(continueOnFailure bool) Chain {
	c.continueOnFailure = continueOnFailure
	return c
}

func (c *BaseChain) AddCommand(command Command) Chain {
	c.commands = append(c.commands, command)
	return c
}

// Commands lists the chain's steps in execution order.
func (c *BaseChain) Commands() []Command {
	return c.commands
}

func (c *BaseChain) IsExecutable(context Context) bool {
	return context != nil && context.GetContext() != nil
}

func (c *BaseChain) Execute(chCtx Context) {
	parent := chCtx.GetContext()
	outer, chainSpan := c.Tracer.Start(parent, fmt.Sprintf("%s_execute", c.GetName()))
	defer func() {
		chCtx.SetContext(parent)
		if chCtx.HasErrors() {
			chainSpan.SetStatus(codes.Error, "chain failed")
		} else {
			chainSpan.SetStatus(codes.Ok, "")
		}
		chainSpan.End()
	}()

	for i, command := range c.commands {
		if chCtx.HasErrors() && !c.continueOnFailure {
			chainSpan.AddEvent("chain stopped", trace.WithAttributes(
				attribute.String("skipped", command.GetName()),
				attribute.Int("step", i)))
			break
		}

		before := len(chCtx.GetErrors())
		cmdCtx, span := c.Tracer.Start(outer, command.GetName())

		if command.IsExecutable(chCtx) {
			chCtx.SetContext(cmdCtx)
			command.Execute(chCtx)
			chCtx.SetContext(outer)
		} else {
			chCtx.AddError(command.GetName(), &ErrNotExecutable{Command: command.GetName()})
		}

		if failed := len(chCtx.GetErrors()) > before; failed {
			if err, ok := chCtx.GetErrors()[command.GetName()]; ok {
				span.RecordError(err)
			}
			span.SetStatus(codes.Error, "command failed")
			count(cmdCtx, command.GetErrorCounter())
		} else {
			span.SetStatus(codes.Ok, "")
			count(cmdCtx, command.GetSuccessCounter())
		}
		span.End()

		out := chCtx.Get(CtxOut)
		chCtx.Remove(CtxIn)
		if out != nil {
			chCtx.Add(CtxIn, out)
		}
		chCtx.Remove(CtxOut)
	}
}

func count(ctx context.Context, counter metric.Int64Counter) {
	if counter != nil {
		counter.Add(ctx, 1)
	}
}
