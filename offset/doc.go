// Package offset measures the offset between the two toolheads of an IDEX
// printer along X or Y.
//
// Each toolhead is driven against the same endstop surface from a fixed start
// point; the trigger position is read back from the steppers and the two
// readings are differenced (left minus right). Repeated samples are combined
// with Combine.
package offset
