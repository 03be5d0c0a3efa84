// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package kaminari is a container for the AS3935 lightning detector driver
// and the kaminari application built on it.
//
// See as3935 for the driver and cmd/kaminari for the application.
package kaminari
