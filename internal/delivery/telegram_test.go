package delivery

import "testing"

func TestFormatPost(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{
			name: "title and body",
			msg:  Message{Title: "Summer sale", Body: "Up to 50% off"},
			want: "<b>Summer sale</b>\n\nUp to 50% off",
		},
		{
			name: "body only",
			msg:  Message{Body: "Plain announcement"},
			want: "Plain announcement",
		},
		{
			name: "html escaped",
			msg:  Message{Title: "Deals <b>now</b>", Body: "Buy & save"},
			want: "<b>Deals &lt;b&gt;now&lt;/b&gt;</b>\n\nBuy &amp; save",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatPost(&tt.msg); got != tt.want {
				t.Errorf("formatPost() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewTelegramValidation(t *testing.T) {
	if _, err := NewTelegram(TelegramConfig{Token: "", ChatID: -100}, nil); err == nil {
		t.Error("expected error for empty token")
	}
	if _, err := NewTelegram(TelegramConfig{Token: "123:abc", ChatID: 0}, nil); err == nil {
		t.Error("expected error for empty chat id")
	}
}
