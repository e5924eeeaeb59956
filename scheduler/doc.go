// Package scheduler implements the core Multi-Level Feedback Queue (MLFQ)
// scheduler for a batched LLM inference serving system.
//
// # Reading Guide
//
// Start with these files to understand the scheduling kernel:
//   - request.go: Request/Sequence lifecycle and status machine
//   - priority_ladder.go: the ordered FIFO-queue-per-priority-level structure
//     shared by the waiting and swapped pools
//   - scheduler.go: the iteration orchestrator that composes every other
//     component into a single Schedule() call
//
// # Architecture
//
// The package defines the scheduler and its external collaborator
// interface (BlockManager); a reference implementation of that interface
// lives in the sibling refblock package for tests and the CLI demo.
//
//   - admission.go: prompt-phase admission controller
//   - preemption.go: decode-phase victim selection and preemption
//   - swapin.go: promotion of swapped requests back into running
//   - demotion.go: feedback-driven priority demotion ("free finished")
//   - starvation.go: periodic starvation rescue
//   - running_order.go: pluggable ordering of the running set before
//     preemption (default mirrors the fixed policy the spec describes)
//   - bundle.go: YAML-loadable policy/config bundle
//
// # Key Interfaces
//
//   - BlockManager: KV-cache allocation, swap, and copy-on-write planning
//   - RunningOrderPolicy: orders the running set before preemption scans it
package scheduler
