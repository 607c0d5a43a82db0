package services

// Canned chat replies. The welcome menu doubles as a trailing suffix on
// several other replies.

const WelcomeMessage = `What would you like to do?
1. Select 1 to Place an order
2. Select 99 to checkout order
3. Select 98 to see order history
4. Select 97 to see current order
5. Select 0 to cancel order`

const addedSuffix = `What would you like to do next?
1. Select 1 to Place an order
2. Select 99 to checkout order
3. Select 98 to see order history
4. Select 97 to see current order
5. Select 0 to cancel order`

const schedulePrompt = `Do you want to schedule this order for later? If yes, please provide date and time in format YYYY-MM-DD HH:MM (e.g., 2023-05-20 14:30). If no, just type 'no'.`

const paymentOptions = `Please select a payment option:
1. Pay with Paystack (Credit/Debit Card)
2. Cancel payment and go back

Type 'pay' to proceed with payment or 'cancel' to go back.`

const (
	noOrderToPlace  = "No order to place. Select 1 to place an order."
	noCurrentOrder  = "You don't have any current order. Select 1 to place an order."
	noOrderToCancel = "You don't have any order to cancel. Select 1 to place an order."
	noOrderToPayFor = "No order to pay for. Select 1 to place an order."
	noOrderHistory  = "You don't have any order history yet. Select 1 to place your first order."
	emptyMenu       = "Sorry, there are no menu items available. Please try again later."
)

// Generic apologies for storage/gateway failures caught at operation
// boundaries.
const (
	errSelection = "Sorry, there was an error processing your selection. Please try again."
	errSchedule  = "Sorry, there was an error scheduling your order. Please try again."
	errMenu      = "Sorry, there was an error retrieving the menu. Please try again."
	errCheckout  = "Sorry, there was an error checking out your order. Please try again."
	errHistory   = "Sorry, there was an error retrieving your order history. Please try again."
	errCurrent   = "Sorry, there was an error retrieving your current order. Please try again."
	errCancel    = "Sorry, there was an error cancelling your order. Please try again."
	errPayment   = "Sorry, there was an error processing your payment. Please try again."
)

const paymentConfirmed = `Payment successful! Your order has been confirmed.
Thank you for your purchase.

` + WelcomeMessage
