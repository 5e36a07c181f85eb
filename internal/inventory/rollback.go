package inventory

import (
	"context"
	"strconv"
)

// RollbackChangeSet undoes a recorded allocation run. Changes are replayed in
// reverse of their stored order inside one transaction: count changes apply
// the algebraic delta old-new, so a mutation made by a third party in the
// meantime survives the rollback; warehouse changes restore the old value;
// inserted lots are deleted.
func (s *Service) RollbackChangeSet(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		set, err := tx.GetChangeSet(ctx, id)
		if err != nil {
			return err
		}
		for i := len(set.Changes) - 1; i >= 0; i-- {
			switch change := set.Changes[i].(type) {
			case CountChange:
				if err := tx.AdjustLotCount(ctx, change.LotID, change.Old-change.New); err != nil {
					return err
				}
			case WarehouseChange:
				if err := tx.SetLotWarehouse(ctx, change.LotID, change.Old); err != nil {
					return err
				}
			case LotInsert:
				if err := tx.DeleteLot(ctx, change.LotID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.ObserveRollback()
	}
	s.recordAudit(ctx, "inventory:rollback", strconv.FormatInt(id, 10), map[string]any{
		"change_set": id,
	})
	return nil
}
