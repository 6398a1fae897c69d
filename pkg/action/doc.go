// Package action implements the async action engine: submitting a
// device-affecting operation (attach or detach a device or vSmart
// template, activate or deactivate a central policy) and driving it to
// completion. WAN edge certificate pushes are not among its categories.
//
// Device-scoped actions are chunked (DefaultChunkSize devices per
// controller request, ordered by system IP ascending, the order a
// vManage operator expects in the task view) and each chunk's resulting
// action ID is polled by a bounded pool of goroutines so a large push
// against hundreds of devices never opens hundreds of concurrent
// long-poll requests against the controller. Category ordering for a
// batch of mixed action kinds follows the controller's own dependency
// direction: attach device templates before attaching vSmart policy
// templates, activate a central policy only after every device it
// targets is attached; the reverse order applies to detach/deactivate.
package action
