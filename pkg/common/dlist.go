// Copyright 2025 EmberDB Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

// GenericDList is a doubly linked list with the most recently inserted
// node at the head. Version chains hang off it: the head is always the
// newest version.
type GenericDList[T any] struct {
	head  *GenericDLNode[T]
	tail  *GenericDLNode[T]
	depth int
}

type GenericDLNode[T any] struct {
	prev, next *GenericDLNode[T]
	payload    T
}

func (n *GenericDLNode[T]) GetPayload() T { return n.payload }

func NewGenericDList[T any]() *GenericDList[T] {
	return &GenericDList[T]{}
}

func (l *GenericDList[T]) Depth() int { return l.depth }

func (l *GenericDList[T]) GetHead() *GenericDLNode[T] { return l.head }
func (l *GenericDList[T]) GetTail() *GenericDLNode[T] { return l.tail }

// Insert adds a payload at the head of the list.
func (l *GenericDList[T]) Insert(payload T) *GenericDLNode[T] {
	node := &GenericDLNode[T]{payload: payload}
	if l.head == nil {
		l.head = node
		l.tail = node
	} else {
		node.next = l.head
		l.head.prev = node
		l.head = node
	}
	l.depth++
	return node
}

func (l *GenericDList[T]) Delete(node *GenericDLNode[T]) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
	l.depth--
}

// Loop visits nodes from the head (newest) unless reverse is set. The
// callback returns false to stop the traversal.
func (l *GenericDList[T]) Loop(fn func(node *GenericDLNode[T]) bool, reverse bool) {
	if reverse {
		for n := l.tail; n != nil; {
			prev := n.prev
			if !fn(n) {
				return
			}
			n = prev
		}
		return
	}
	for n := l.head; n != nil; {
		next := n.next
		if !fn(n) {
			return
		}
		n = next
	}
}
