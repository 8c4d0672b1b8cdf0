// Ganglink Core
// Copyright (c) 2026 The Ganglink Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Ganglink Core.
//
// Ganglink Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Ganglink Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Ganglink Core.  If not, see <http://www.gnu.org/licenses/>.

package mocks

import (
	"context"

	"github.com/ganglink/ganglink-core/pkg/helpers/command"
	"github.com/stretchr/testify/mock"
)

// MockCommandExecutor is a testify mock for command.Executor.
//
// Example:
//
//	mockCmd := &MockCommandExecutor{}
//	mockCmd.On("StartWithOptions", mock.Anything, mock.Anything, "/opt/hub", mock.Anything).Return(nil)
type MockCommandExecutor struct {
	mock.Mock
}

func (m *MockCommandExecutor) LookPath(file string) (string, error) {
	called := m.Called(file)
	//nolint:wrapcheck // mock returns are passed through
	return called.String(0), called.Error(1)
}

func (m *MockCommandExecutor) StartWithOptions(
	ctx context.Context,
	opts command.StartOptions,
	name string,
	args ...string,
) error {
	called := m.Called(ctx, opts, name, args)
	//nolint:wrapcheck // mock returns are passed through
	return called.Error(0)
}
