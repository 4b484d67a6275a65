/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage is the host-side persistence for markup. It keeps
// documents, shapes, per-page calibrations and a revision trail in a local
// SQLite file, and reads and writes the JSON interchange format that other
// tools exchange markup in. The engine never calls it; hosts subscribe it to
// the session's change notifications.
package storage
