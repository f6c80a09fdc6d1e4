package coherency

import (
	"context"

	"go.uber.org/zap"

	"netsync/domain/core/entities"
	"netsync/domain/events"
	pkgerrors "netsync/pkg/errors"
)

// AddTodo attaches a task to a node of the current network and persists it.
// The denormalized task list is patched optimistically and rolled back on a
// persistence failure.
func (e *Engine) AddTodo(ctx context.Context, nodeID, text string) (*entities.Todo, error) {
	e.mu.Lock()
	var nodeName string
	networkID := e.current
	for _, n := range e.nodes {
		if n.ID == nodeID {
			nodeName = n.Name
			break
		}
	}
	e.mu.Unlock()
	if nodeName == "" {
		return nil, pkgerrors.NewNotFoundError("node")
	}

	todo, err := entities.NewTodo(nodeID, text)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	preImage := e.tasks
	e.tasks = append(append([]TaskView{}, e.tasks...), TaskView{
		Todo:      *todo,
		NodeName:  nodeName,
		NetworkID: networkID,
	})
	e.mu.Unlock()

	if err := e.store.Todos.Insert(ctx, todo); err != nil {
		e.mu.Lock()
		e.tasks = preImage
		e.mu.Unlock()
		e.notify(err)
		return nil, err
	}
	return todo, nil
}

// CompleteTodo marks a task done optimistically, persists the flag, and
// broadcasts todo-completed so other views stay in sync without a refetch.
func (e *Engine) CompleteTodo(ctx context.Context, todoID, nodeID string) error {
	e.mu.Lock()
	preImage := e.tasks
	next := make([]TaskView, 0, len(e.tasks))
	found := false
	for _, t := range e.tasks {
		if t.Todo.ID == todoID {
			t.Todo.Completed = true
			found = true
		}
		next = append(next, t)
	}
	e.tasks = next
	e.mu.Unlock()
	if !found {
		return pkgerrors.NewNotFoundError("todo")
	}

	if err := e.store.Todos.SetCompleted(ctx, todoID, true); err != nil {
		e.mu.Lock()
		e.tasks = preImage
		e.mu.Unlock()
		e.notify(err)
		return err
	}

	e.bus.Publish(events.NewTodoCompleted(todoID, nodeID))
	return nil
}

// DeleteTodo removes a task optimistically, persists the deletion, and
// broadcasts todo-deleted.
func (e *Engine) DeleteTodo(ctx context.Context, todoID, nodeID string) error {
	e.mu.Lock()
	preImage := e.tasks
	next := make([]TaskView, 0, len(e.tasks))
	found := false
	for _, t := range e.tasks {
		if t.Todo.ID == todoID {
			found = true
			continue
		}
		next = append(next, t)
	}
	e.tasks = next
	e.mu.Unlock()
	if !found {
		return pkgerrors.NewNotFoundError("todo")
	}

	if err := e.store.Todos.Delete(ctx, todoID); err != nil {
		e.mu.Lock()
		e.tasks = preImage
		e.mu.Unlock()
		e.notify(err)
		return err
	}

	e.bus.Publish(events.NewTodoDeleted(todoID, nodeID))
	return nil
}

// refreshTasks rebuilds the denormalized task list for networkID from the
// remote store. Best-effort: a failure leaves the previous list in place.
func (e *Engine) refreshTasks(ctx context.Context, networkID string) {
	e.mu.Lock()
	if e.current != networkID {
		e.mu.Unlock()
		return
	}
	nodeNames := make(map[string]string, len(e.nodes))
	nodeIDs := make([]string, 0, len(e.nodes))
	for _, n := range e.nodes {
		nodeNames[n.ID] = n.Name
		nodeIDs = append(nodeIDs, n.ID)
	}
	e.mu.Unlock()

	if len(nodeIDs) == 0 {
		e.mu.Lock()
		if e.current == networkID {
			e.tasks = nil
		}
		e.mu.Unlock()
		return
	}

	todos, err := e.store.Todos.ListByNodes(ctx, nodeIDs)
	if err != nil {
		e.logger.Debug("task refresh failed",
			zap.String("networkID", networkID), zap.Error(err))
		return
	}

	tasks := make([]TaskView, 0, len(todos))
	for _, todo := range todos {
		tasks = append(tasks, TaskView{
			Todo:      *todo,
			NodeName:  nodeNames[todo.NodeID],
			NetworkID: networkID,
		})
	}

	e.mu.Lock()
	if e.current == networkID {
		e.tasks = tasks
	} else {
		e.metrics.StaleDiscards.Inc()
	}
	e.mu.Unlock()
}
