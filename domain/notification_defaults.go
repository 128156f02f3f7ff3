package domain

func strp(s string) *string { return &s }

const mailFooter = "\n\n──────────────────────────\n運営事務局\n──────────────────────────"

// DefaultNotificationSettings is the seed set written by the seed command. Admins edit them afterwards.
func DefaultNotificationSettings() []NotificationSetting {
	return []NotificationSetting{
		{
			NotificationKey: KeyWorkerMatched, Name: "マッチング成立", TargetType: TargetWorker,
			ChatEnabled: true, EmailEnabled: true, PushEnabled: true,
			ChatMessage:  strp("{{worker_name}}さん、マッチングが成立しました！\n\n勤務先: {{facility_name}}\n日時: {{work_date}} {{start_time}}〜{{end_time}}\n報酬: {{wage}}円\n\n▼ 勤務詳細・労働条件通知書\n{{my_job_url}}"),
			EmailSubject: strp("マッチング成立のお知らせ"),
			EmailBody:    strp("{{worker_name}}様\n\nお仕事のマッチングが成立しました。\n\n勤務先: {{facility_name}}\n日時: {{work_date}} {{start_time}}〜{{end_time}}\n報酬: {{wage}}円\n\n{{my_job_url}}" + mailFooter),
			PushTitle:    strp("マッチング成立"),
			PushBody:     strp("{{facility_name}}の勤務が確定しました"),
		},
		{
			NotificationKey: KeyWorkerInterviewRejected, Name: "面接あり求人：不採用", TargetType: TargetWorker,
			ChatEnabled: true, EmailEnabled: true,
			ChatMessage:  strp("{{worker_name}}さん、この度は{{facility_name}}へのご応募ありがとうございました。\n\n選考の結果、今回はご縁がありませんでした。"),
			EmailSubject: strp("選考結果のお知らせ"),
			EmailBody:    strp("{{worker_name}}様\n\nこの度は{{facility_name}}へのご応募ありがとうございました。\n選考の結果、今回はご縁がありませんでした。" + mailFooter),
		},
		{
			NotificationKey: KeyWorkerCancelledByFacility, Name: "施設からのキャンセル", TargetType: TargetWorker,
			ChatEnabled: true, EmailEnabled: true, PushEnabled: true,
			ChatMessage:  strp("{{worker_name}}さん、{{facility_name}}の{{work_date}}の勤務がキャンセルされました。\nご不便をおかけして申し訳ございません。"),
			EmailSubject: strp("勤務キャンセルのお知らせ"),
			EmailBody:    strp("{{worker_name}}様\n\nご予約いただいていた勤務がキャンセルされました。\n\n勤務先: {{facility_name}}\n日時: {{work_date}} {{start_time}}〜{{end_time}}" + mailFooter),
			PushTitle:    strp("勤務キャンセル"),
			PushBody:     strp("{{facility_name}}の勤務がキャンセルされました"),
		},
		{
			NotificationKey: KeyWorkerReminderDayBefore, Name: "勤務前日リマインド", TargetType: TargetWorker,
			ChatEnabled: true, EmailEnabled: true, PushEnabled: true,
			ChatMessage:  strp("{{worker_name}}さん、明日の勤務リマインドです。\n\n勤務先: {{facility_name}}\n日時: {{work_date}} {{start_time}}〜{{end_time}}"),
			EmailSubject: strp("明日の勤務リマインド"),
			EmailBody:    strp("{{worker_name}}様\n\n明日の勤務についてお知らせいたします。\n\n勤務先: {{facility_name}}\n日時: {{work_date}} {{start_time}}〜{{end_time}}" + mailFooter),
			PushTitle:    strp("明日の勤務"),
			PushBody:     strp("{{facility_name}} {{start_time}}〜"),
		},
		{
			NotificationKey: KeyWorkerReminderSameDay, Name: "勤務当日リマインド", TargetType: TargetWorker,
			PushEnabled: true,
			PushTitle:   strp("本日の勤務"),
			PushBody:    strp("{{facility_name}} {{start_time}}〜 お気をつけて！"),
		},
		{
			NotificationKey: KeyWorkerReviewRequest, Name: "レビュー依頼", TargetType: TargetWorker,
			ChatEnabled: true, EmailEnabled: true,
			ChatMessage:  strp("{{worker_name}}さん、お疲れ様でした！\n{{facility_name}}での勤務はいかがでしたか？\n\n{{review_url}}"),
			EmailSubject: strp("レビューのお願い"),
			EmailBody:    strp("{{worker_name}}様\n\n{{facility_name}}での勤務お疲れ様でした。\n{{review_url}}" + mailFooter),
		},
		{
			NotificationKey: KeyWorkerReviewReceived, Name: "施設からレビューが届いた", TargetType: TargetWorker,
			ChatEnabled: true, EmailEnabled: true,
			ChatMessage:  strp("{{worker_name}}さん、{{facility_name}}からレビューが届きました！"),
			EmailSubject: strp("レビューが届きました"),
			EmailBody:    strp("{{worker_name}}様\n\n{{facility_name}}からレビューが届きました。" + mailFooter),
		},
		{
			NotificationKey: KeyWorkerNewMessage, Name: "施設からのメッセージ", TargetType: TargetWorker,
			EmailEnabled: true, PushEnabled: true,
			EmailSubject: strp("{{facility_name}}からメッセージが届きました"),
			EmailBody:    strp("{{worker_name}}様\n\n{{facility_name}}からメッセージが届きました。\n\n{{message_preview}}" + mailFooter),
			PushTitle:    strp("新着メッセージ"),
			PushBody:     strp("{{facility_name}}: {{message_preview}}"),
		},
		{
			NotificationKey: KeyFacilityNewApplication, Name: "新規応募", TargetType: TargetFacility,
			ChatEnabled: true, EmailEnabled: true, PushEnabled: true,
			ChatMessage:  strp("新しい応募がありました！\n\n求人: {{job_title}}\n応募者: {{worker_name}}さん\n勤務希望日: {{work_date}}"),
			EmailSubject: strp("新しい応募がありました"),
			EmailBody:    strp("{{facility_name}}様\n\n新しい応募がありました。\n\n求人: {{job_title}}\n応募者: {{worker_name}}さん\n勤務希望日: {{work_date}}" + mailFooter),
			PushTitle:    strp("新規応募"),
			PushBody:     strp("{{worker_name}}さんから応募がありました"),
		},
		{
			NotificationKey: KeyFacilitySlotsFilled, Name: "募集枠が埋まった", TargetType: TargetFacility,
			EmailEnabled: true,
			EmailSubject: strp("募集枠が埋まりました"),
			EmailBody:    strp("{{facility_name}}様\n\n求人「{{job_title}}」{{work_date}}の募集枠がすべて埋まりました。" + mailFooter),
		},
		{
			NotificationKey: KeyFacilityCancelledByWorker, Name: "ワーカーからのキャンセル", TargetType: TargetFacility,
			ChatEnabled: true, EmailEnabled: true, PushEnabled: true,
			ChatMessage:  strp("{{worker_name}}さんから勤務キャンセルの連絡がありました。\n\n求人: {{job_title}}\n日時: {{work_date}}"),
			EmailSubject: strp("勤務キャンセルのお知らせ"),
			EmailBody:    strp("{{facility_name}}様\n\nワーカーから勤務キャンセルの連絡がありました。\n\n求人: {{job_title}}\nワーカー: {{worker_name}}さん\n日時: {{work_date}}" + mailFooter),
			PushTitle:    strp("キャンセル通知"),
			PushBody:     strp("{{worker_name}}さんが勤務をキャンセルしました"),
		},
		{
			NotificationKey: KeyFacilityReminderDayBefore, Name: "勤務前日リマインド", TargetType: TargetFacility,
			EmailEnabled: true,
			EmailSubject: strp("明日の勤務予定"),
			EmailBody:    strp("{{facility_name}}様\n\n明日の勤務予定です。\n\n求人: {{job_title}}\nワーカー: {{worker_name}}さん\n日時: {{work_date}} {{start_time}}〜{{end_time}}" + mailFooter),
		},
		{
			NotificationKey: KeyFacilityReviewRequest, Name: "ワーカーレビュー依頼", TargetType: TargetFacility,
			EmailEnabled: true,
			EmailSubject: strp("ワーカーのレビューをお願いします"),
			EmailBody:    strp("{{facility_name}}様\n\n{{worker_name}}さんの{{work_date}}の勤務が終了しました。レビューをお願いいたします。\n{{review_url}}" + mailFooter),
		},
		{
			NotificationKey: KeyFacilityReviewReceived, Name: "ワーカーからレビューが届いた", TargetType: TargetFacility,
			EmailEnabled: true,
			EmailSubject: strp("レビューが投稿されました"),
			EmailBody:    strp("{{facility_name}}様\n\n{{worker_name}}さんからレビュー（評価: {{rating}}）が投稿されました。" + mailFooter),
		},
		{
			NotificationKey: KeyFacilityNewMessage, Name: "ワーカーからのメッセージ", TargetType: TargetFacility,
			EmailEnabled: true,
			EmailSubject: strp("{{worker_name}}さんからメッセージが届きました"),
			EmailBody:    strp("{{facility_name}}様\n\n{{worker_name}}さんからメッセージが届きました。\n\n{{message_preview}}" + mailFooter),
		},
		{
			NotificationKey: KeyModificationRequested, Name: "勤怠変更申請", TargetType: TargetFacility,
			EmailEnabled: true,
			EmailSubject: strp("勤怠変更申請が届きました"),
			EmailBody:    strp("{{facility_name}}様\n\n{{worker_name}}さんから{{work_date}}の勤怠変更申請が届きました。\n申請時間: {{requested_start}}〜{{requested_end}}（休憩{{requested_break}}分）\n申請金額: {{requested_amount}}円\nコメント: {{worker_comment}}" + mailFooter),
		},
		{
			NotificationKey: KeyModificationApproved, Name: "勤怠変更承認", TargetType: TargetWorker,
			ChatEnabled: true, EmailEnabled: true,
			ChatMessage:  strp("{{worker_name}}さん、{{work_date}}の勤怠変更申請が承認されました。\n確定金額: {{requested_amount}}円"),
			EmailSubject: strp("勤怠変更申請が承認されました"),
			EmailBody:    strp("{{worker_name}}様\n\n{{facility_name}}での{{work_date}}の勤怠変更申請が承認されました。\n確定金額: {{requested_amount}}円\n施設コメント: {{admin_comment}}" + mailFooter),
		},
		{
			NotificationKey: KeyModificationRejected, Name: "勤怠変更却下", TargetType: TargetWorker,
			ChatEnabled: true, EmailEnabled: true,
			ChatMessage:  strp("{{worker_name}}さん、{{work_date}}の勤怠変更申請が却下されました。\n施設コメント: {{admin_comment}}"),
			EmailSubject: strp("勤怠変更申請が却下されました"),
			EmailBody:    strp("{{worker_name}}様\n\n{{facility_name}}での{{work_date}}の勤怠変更申請が却下されました。\n施設コメント: {{admin_comment}}\n内容を修正して再申請できます。" + mailFooter),
		},
		{
			NotificationKey: KeyAdminNewWorker, Name: "新規ワーカー登録", TargetType: TargetSystemAdmin,
			EmailEnabled: true,
			EmailSubject: strp("新規ワーカー登録: {{worker_name}}"),
			EmailBody:    strp("新しいワーカーが登録されました。\n\n氏名: {{worker_name}}\nメール: {{worker_email}}"),
		},
		{
			NotificationKey: KeyAdminNewFacility, Name: "新規施設登録", TargetType: TargetSystemAdmin,
			EmailEnabled: true,
			EmailSubject: strp("新規施設登録: {{facility_name}}"),
			EmailBody:    strp("新しい施設が登録されました。\n\n施設名: {{facility_name}}"),
		},
		{
			NotificationKey: KeyAdminHighCancelRate, Name: "高キャンセル率ワーカー", TargetType: TargetSystemAdmin,
			EmailEnabled: true,
			EmailSubject: strp("キャンセル率の高いワーカーがいます"),
			EmailBody:    strp("ワーカー {{worker_name}}（ID: {{worker_id}}）のキャンセル率が{{cancel_rate}}%になりました。\nキャンセル数: {{cancel_count}} / 対象: {{total_count}}"),
		},
		{
			NotificationKey: KeyAdminLowRatingStreak, Name: "低評価連続", TargetType: TargetSystemAdmin,
			EmailEnabled: true,
			EmailSubject: strp("低評価が連続している施設があります"),
			EmailBody:    strp("施設 {{facility_name}}（ID: {{facility_id}}）で直近{{streak}}件のレビューがすべて低評価です。"),
		},
		{
			NotificationKey: KeyPasswordReset, Name: "パスワード再設定", TargetType: TargetWorker,
			EmailEnabled: true,
			EmailSubject: strp("パスワード再設定のご案内"),
			EmailBody:    strp("以下のリンクからパスワードを再設定してください（有効期限1時間）。\n\n{{reset_url}}" + mailFooter),
		},
	}
}
