package preload

import "fmt"

// QuotaExceededMessage is the user-facing (Persian) quota refusal.
func QuotaExceededMessage(used, limit int64) string {
	return fmt.Sprintf("سهمیهٔ روزانهٔ شما به پایان رسیده است (%d از %d ثانیه استفاده شده). لطفاً فردا دوباره تلاش کنید.", used, limit)
}
